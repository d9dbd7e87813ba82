package main

import (
	"time"

	"github.com/go-mail/mail/v2"
)

// mailSender delivers already composed messages.
type mailSender interface {
	send(msgs ...*mail.Message) error
}

type mailer struct {
	dialer *mail.Dialer
}

func newMailer(host string, port int, username string, password string, useTLS bool, timeout time.Duration) *mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = timeout
	if useTLS {
		dialer.StartTLSPolicy = mail.MandatoryStartTLS
	} else {
		dialer.StartTLSPolicy = mail.NoStartTLS
	}
	if port == 465 {
		dialer.SSL = true
	}
	return &mailer{dialer: dialer}
}

// send opens one connection for all messages. Only the dial is retried so a
// half-delivered batch is never sent twice.
func (m *mailer) send(msgs ...*mail.Message) error {
	var (
		s   mail.SendCloser
		err error
	)
	for i := 0; i < 3; i++ {
		s, err = m.dialer.Dial()
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	defer s.Close()
	return mail.Send(s, msgs...)
}
