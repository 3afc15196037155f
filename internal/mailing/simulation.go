package mailing

import (
	"context"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

const simulationPreviewLimit = 3

// SimulationTransport accepts every message without contacting anyone.
// It is used when no mail credentials are configured.
type SimulationTransport struct{}

// NewSimulationTransport creates the no-op transport.
func NewSimulationTransport() *SimulationTransport { return &SimulationTransport{} }

// Mode implements sending.Transport.
func (t *SimulationTransport) Mode() string { return sending.ModeSimulation }

// Open implements sending.Transport. It never fails.
func (t *SimulationTransport) Open(_ context.Context) (sending.Session, error) {
	return &simulationSession{}, nil
}

type simulationSession struct {
	count int
}

func (s *simulationSession) Send(_ context.Context, msg *domain.EmailMessage) error {
	s.count++
	if s.count <= simulationPreviewLimit {
		logger.Info("simulated send", "recipient", msg.To, "subject", msg.Subject)
	}
	return nil
}

func (s *simulationSession) Close() error {
	logger.Info("simulation session closed", "messages", s.count)
	return nil
}
