package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para avisos por correo al operador.
type Sender interface {
	SendEscalationAlert(ctx context.Context, toEmail string, protocol, leadName, phone string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendEscalationAlert(_ context.Context, _ string, _ string, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
