package email_sender

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"BilgiNotifier/internal/domain"
	"github.com/wb-go/wbf/zlog"
	"gopkg.in/gomail.v2"
)

// dialer то, что нужно от gomail.Dialer.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender транспорт, отправляющий письма через SMTP.
type SMTPSender struct {
	Host     string
	Port     int
	From     string
	FromName string

	dialer dialer
}

// NewSMTPSender создает новый экземпляр SMTPSender.
func NewSMTPSender(host string, port int, username, password, from, fromName string, ssl, insecureSkipVerify bool) (*SMTPSender, error) {
	if host == "" {
		return nil, errors.New("smtp host is empty")
	}
	if from == "" {
		return nil, errors.New("sender address is empty")
	}
	d := gomail.NewDialer(host, port, username, password)
	// NewDialer сам включает SSL для порта 465
	if ssl {
		d.SSL = true
	}
	if insecureSkipVerify {
		zlog.Logger.Warn().Msg("InsecureSkipVerify is enabled for smtp TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: host}
	}
	if fromName == "" {
		fromName = "BilgiBite"
	}
	zlog.Logger.Info().Str("host", host).Int("port", port).Str("from", from).Msg("smtp sender initialized")
	return &SMTPSender{
		Host:     host,
		Port:     port,
		From:     from,
		FromName: fromName,
		dialer:   d,
	}, nil
}

// Deliver отправляет письмо одному получателю. Отмена ctx прерывает ожидание, но не само соединение.
func (s *SMTPSender) Deliver(ctx context.Context, msg domain.OutgoingMessage) error {
	m := s.buildMessage(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		zlog.Logger.Debug().Str("to", msg.To).Str("job_id", msg.JobID.String()).Msg("email sent")
		return nil
	}
}

// buildMessage собирает multipart письмо: text/plain с альтернативой text/html.
func (s *SMTPSender) buildMessage(msg domain.OutgoingMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.From, s.FromName)
	if msg.DisplayName != "" {
		m.SetAddressHeader("To", msg.To, msg.DisplayName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("X-Notification-Id", msg.JobID.String())

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}
	return m
}
