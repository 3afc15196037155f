package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/mailing"
	"github.com/pitchperfect/waitlist/internal/pkg/distlock"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/sending"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

// TestRecipientName addresses configuration test emails.
const TestRecipientName = "Test User"

const testContent = `Hello {{name}},

This is a test email to verify that the email configuration is working correctly.

If you receive this email, the SMTP settings are properly configured!

Best regards,
The %s Team`

// CampaignStore is the campaign persistence the dispatcher needs.
type CampaignStore interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	Create(ctx context.Context, c *domain.Campaign) error
	MarkSent(ctx context.Context, id string, count int, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

// SignupStore is the signup persistence the dispatcher needs.
type SignupStore interface {
	SignupLister
	MarkContacted(ctx context.Context, id string) error
}

// Config tunes the dispatcher.
type Config struct {
	// RenderConcurrency bounds parallel message rendering. Sends are always
	// serialized on one session.
	RenderConcurrency int
	LockTTL           time.Duration
}

// Service runs campaign dispatches. It is safe for concurrent use; two
// dispatches of the same campaign are excluded by a per-campaign lock.
type Service struct {
	campaigns CampaignStore
	signups   SignupStore
	resolver  *Resolver
	transport sending.Transport
	layout    *mailing.Layout
	locks     distlock.Factory
	cfg       Config
	now       func() time.Time
}

// NewService wires the dispatcher. A nil lock factory uses in-process locks.
func NewService(campaigns CampaignStore, signups SignupStore, transport sending.Transport,
	layout *mailing.Layout, locks distlock.Factory, cfg Config) *Service {
	if cfg.RenderConcurrency <= 0 {
		cfg.RenderConcurrency = 8
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if locks == nil {
		locks = distlock.NewFactory(nil, nil, cfg.LockTTL)
	}
	return &Service{
		campaigns: campaigns,
		signups:   signups,
		resolver:  NewResolver(signups),
		transport: transport,
		layout:    layout,
		locks:     locks,
		cfg:       cfg,
		now:       time.Now,
	}
}

// TransportMode reports which transport is active.
func (s *Service) TransportMode() string { return s.transport.Mode() }

// SendNew saves a new draft and dispatches it. With no pending recipients
// the draft stays saved and the outcome reports nothing to send.
func (s *Service) SendNew(ctx context.Context, input campaign.DraftInput, author string) (*domain.DispatchOutcome, error) {
	c, err := campaign.NewDraft(input, author, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: save campaign: %v", ErrStoreUnavailable, err)
	}
	return s.SendDraft(ctx, c.ID)
}

// SendDraft dispatches an existing draft to every pending signup.
func (s *Service) SendDraft(ctx context.Context, id string) (*domain.DispatchOutcome, error) {
	lock := s.locks("dispatch:" + id)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: dispatch lock: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, ErrInProgress
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release dispatch lock", "campaign_id", id, "error", err)
		}
	}()

	c, err := s.campaigns.Get(ctx, id)
	if errors.Is(err, campaign.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load campaign: %v", ErrStoreUnavailable, err)
	}
	if c.Status != domain.CampaignDraft {
		return nil, campaign.ErrNotDraft
	}
	return s.dispatch(ctx, c)
}

func (s *Service) dispatch(ctx context.Context, c *domain.Campaign) (*domain.DispatchOutcome, error) {
	recipients, err := s.resolver.Resolve(ctx, CriterionPending)
	if err != nil {
		return nil, err
	}

	outcome := &domain.DispatchOutcome{CampaignID: c.ID, Results: make([]domain.SendResult, 0, len(recipients))}
	if len(recipients) == 0 {
		logger.Info("campaign has no pending recipients", "campaign_id", c.ID)
		return outcome, nil
	}

	messages, err := s.render(ctx, c.Subject, c.Content, recipients)
	if err != nil {
		return nil, fmt.Errorf("render campaign %s: %w", c.ID, err)
	}

	s.transmit(ctx, recipients, messages, outcome)
	s.reconcile(ctx, c, outcome)
	return outcome, nil
}

// render composes one message per recipient, index-aligned with recipients.
func (s *Service) render(ctx context.Context, subject, content string, recipients []domain.Recipient) ([]*domain.EmailMessage, error) {
	messages := make([]*domain.EmailMessage, len(recipients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RenderConcurrency)
	for i, r := range recipients {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msg, err := s.layout.Compose(subject, content, r)
			if err != nil {
				return err
			}
			messages[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return messages, nil
}

// transmit sends every message over one session, in order, recording one
// result per recipient. A session that cannot be opened fails them all.
func (s *Service) transmit(ctx context.Context, recipients []domain.Recipient, messages []*domain.EmailMessage, outcome *domain.DispatchOutcome) {
	session, err := s.transport.Open(ctx)
	if err != nil {
		logger.Error("mail transport unavailable", "mode", s.transport.Mode(), "campaign_id", outcome.CampaignID, "error", err)
		outcome.TransportError = err.Error()
		for _, r := range recipients {
			outcome.Results = append(outcome.Results, domain.SendResult{Recipient: r, Error: err.Error()})
		}
		return
	}
	defer s.closeSession(session)

	for i, msg := range messages {
		res := domain.SendResult{Recipient: recipients[i]}
		if err := session.Send(ctx, msg); err != nil {
			res.Error = err.Error()
			logger.Warn("recipient not reached", "campaign_id", outcome.CampaignID, "recipient", msg.To, "error", err)
		} else {
			res.Success = true
		}
		outcome.Results = append(outcome.Results, res)
	}
}

func (s *Service) closeSession(session sending.Session) {
	if err := session.Close(); err != nil {
		logger.Warn("close mail session", "mode", s.transport.Mode(), "error", err)
	}
}

// reconcile writes the outcome back. It runs even if the request was
// cancelled mid-send, since the messages that went out cannot be recalled.
func (s *Service) reconcile(ctx context.Context, c *domain.Campaign, outcome *domain.DispatchOutcome) {
	ctx = context.WithoutCancel(ctx)
	sent := outcome.Reached()

	if sent == 0 {
		if err := s.campaigns.MarkFailed(ctx, c.ID); err != nil {
			s.warn(outcome, "record campaign failure", err, "campaign_id", c.ID)
		}
		logger.Warn("campaign failed", "campaign_id", c.ID, "attempted", outcome.Attempted())
		return
	}

	if err := s.campaigns.MarkSent(ctx, c.ID, sent, s.now().UTC()); err != nil {
		s.warn(outcome, "record campaign sent", err, "campaign_id", c.ID)
	}
	for _, r := range outcome.ReachedRecipients() {
		if r.SignupID == "" {
			continue
		}
		if err := s.signups.MarkContacted(ctx, r.SignupID); err != nil {
			s.warn(outcome, "mark signup contacted", err, "signup_id", r.SignupID)
		}
	}
	logger.Info("campaign sent", "campaign_id", c.ID, "sent", sent, "attempted", outcome.Attempted())
}

func (s *Service) warn(outcome *domain.DispatchOutcome, what string, err error, kv ...interface{}) {
	logger.Error(what, append(kv, "error", err)...)
	outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s: %v", what, err))
}

// SendTest sends the configuration test message to a single address. It
// touches no stored state. Transport failures are returned as errors.
func (s *Service) SendTest(ctx context.Context, address string) (*domain.DispatchOutcome, error) {
	addr := signup.NormalizeEmail(address)
	if addr == "" {
		return nil, ErrTestAddressRequired
	}
	if err := signup.ValidateEmail(addr); err != nil {
		return nil, ErrTestAddressInvalid
	}

	r := domain.Recipient{Email: addr, Name: TestRecipientName}
	subject := fmt.Sprintf("%s - Email Configuration Test", s.layout.Product())
	msg, err := s.layout.Compose(subject, fmt.Sprintf(testContent, s.layout.Product()), r)
	if err != nil {
		return nil, fmt.Errorf("render test email: %w", err)
	}

	session, err := s.transport.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.closeSession(session)

	if err := session.Send(ctx, msg); err != nil {
		return nil, err
	}
	logger.Info("test email sent", "recipient", addr, "mode", s.transport.Mode())
	return &domain.DispatchOutcome{Results: []domain.SendResult{{Recipient: r, Success: true}}}, nil
}
