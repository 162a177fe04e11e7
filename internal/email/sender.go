package email

import (
	"context"
	"errors"
)

// Message es un correo con cuerpo en texto plano y HTML.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender define la interfaz para envio de correos transaccionales.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que siempre falla. El registro exige
// correo: sin transporte configurado ningun codigo llega a mostrarse.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Message) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
