package mailer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Dispatcher sends through a primary backend and falls back to a secondary
// with the identical message when the primary fails. It never retries the
// same provider twice; same-provider retry is a caller concern.
type Dispatcher struct {
	primary   Sender
	secondary Sender
	logger    *logrus.Logger
}

func NewDispatcher(primary, secondary Sender, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{primary: primary, secondary: secondary, logger: logger}
}

// Send attempts delivery and reports which backend actually carried the
// message. When every backend fails, the error string carries each underlying
// failure so the caller can tell which layer broke.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) DispatchResult {
	if d.primary == nil {
		return DispatchResult{Sent: false, Error: "no email provider configured"}
	}

	id, primaryErr := d.primary.Send(ctx, msg)
	if primaryErr == nil {
		return DispatchResult{Sent: true, Provider: d.primary.Name(), MessageID: id}
	}
	if d.logger != nil {
		d.logger.WithError(primaryErr).WithField("provider", d.primary.Name()).
			Warn("primary email provider failed")
	}

	if d.secondary == nil {
		return DispatchResult{
			Sent:  false,
			Error: fmt.Sprintf("%s: %v", d.primary.Name(), primaryErr),
		}
	}

	id, secondaryErr := d.secondary.Send(ctx, msg)
	if secondaryErr == nil {
		return DispatchResult{Sent: true, Provider: d.secondary.Name(), MessageID: id}
	}
	if d.logger != nil {
		d.logger.WithError(secondaryErr).WithField("provider", d.secondary.Name()).
			Warn("fallback email provider failed")
	}

	return DispatchResult{
		Sent: false,
		Error: fmt.Sprintf("%s: %v; %s: %v",
			d.primary.Name(), primaryErr, d.secondary.Name(), secondaryErr),
	}
}
