package mailing

import (
	"fmt"
	"strings"

	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

// NewTransport selects the transport described by cfg. It runs once at
// startup. A provider without credentials degrades to simulation.
func NewTransport(cfg config.MailConfig) (sending.Transport, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		switch {
		case cfg.SMTP.Configured():
			provider = sending.ModeSMTP
		case cfg.SES.Configured():
			provider = sending.ModeSES
		case cfg.Resend.Configured():
			provider = sending.ModeResend
		default:
			provider = sending.ModeSimulation
		}
	}

	var configured bool
	switch provider {
	case sending.ModeSimulation:
		return NewSimulationTransport(), nil
	case sending.ModeSMTP:
		configured = cfg.SMTP.Configured()
	case sending.ModeSES:
		configured = cfg.SES.Configured()
	case sending.ModeResend:
		configured = cfg.Resend.Configured()
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}

	if !configured {
		logger.Warn("mail provider has no credentials, using simulation", "provider", provider)
		return NewSimulationTransport(), nil
	}

	switch provider {
	case sending.ModeSMTP:
		return NewSMTPTransport(cfg.SMTP, cfg.Timeout()), nil
	case sending.ModeSES:
		return NewSESTransport(cfg.SES, cfg.Timeout()), nil
	default:
		return NewResendTransport(cfg.Resend, cfg.Timeout()), nil
	}
}
