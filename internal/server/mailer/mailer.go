// Package mailer delivers outgoing notifications. SMTPSender talks to a real
// relay; LogSender only logs, for development and tests.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PasswordResetMessage builds the one-time code mail.
func PasswordResetMessage(from, to, code string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: "Password Reset",
		Body: "You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n" +
			"Please use the following OTP to reset your password: " + code + "\n\n" +
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
	}
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSender builds a sender for host:port. Empty user disables AUTH.
func NewSMTPSender(host string, port int, user, password string) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		sendMail: smtp.SendMail,
	}
	if user != "" {
		s.auth = smtp.PlainAuth("", user, password, host)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(s.addr, s.auth, msg.From, []string{msg.To}, render(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func render(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes messages to the log instead of sending them. The body
// (including any reset code) is logged at debug level only.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "mail delivery disabled, message logged", "to", msg.To, "subject", msg.Subject)
	s.logger.Debug(ctx, "mail body", "to", msg.To, "body", msg.Body)
	return nil
}
