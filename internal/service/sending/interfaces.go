// Package sending defines the capability interfaces for outbound mail.
//
// A Transport opens one Session per dispatch; the dispatcher sends every
// message of the batch over that session in order and then closes it.
// Implementations live in internal/mailing.
package sending

import (
	"context"
	"errors"

	"github.com/pitchperfect/waitlist/internal/domain"
)

// Transport modes reported by Mode.
const (
	ModeSimulation = "simulation"
	ModeSMTP       = "smtp"
	ModeSES        = "ses"
	ModeResend     = "resend"
)

var (
	// ErrTransportUnavailable means no session could be established. It is
	// fatal for the whole batch.
	ErrTransportUnavailable = errors.New("mail transport unavailable")
	// ErrRecipientRejected means a single message was not accepted. The
	// batch continues.
	ErrRecipientRejected = errors.New("recipient rejected")
)

// Transport establishes delivery sessions.
type Transport interface {
	// Open connects and authenticates. Errors wrap ErrTransportUnavailable.
	Open(ctx context.Context) (Session, error)
	Mode() string
}

// Session delivers messages over an established connection. A session is
// used by one goroutine at a time.
type Session interface {
	// Send delivers one message. Errors wrap ErrRecipientRejected.
	Send(ctx context.Context, msg *domain.EmailMessage) error
	Close() error
}
