package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"hemato_backend/internal/config"
)

// Service is the narrow contract the core uses to hand a single send to the
// mail relay. One call, one delivery attempt; retries are the caller's call.
type Service interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPService sends HTML mail over plain SMTP with optional STARTTLS and
// PLAIN auth. Works against MailHog in development and regular providers in
// production.
type SMTPService struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	logger *zap.Logger
}

var _ Service = (*SMTPService)(nil)

// NewSMTPService creates a mailer from the application configuration.
func NewSMTPService(cfg *config.Config, logger *zap.Logger) *SMTPService {
	return &SMTPService{
		host:   cfg.SMTPHost,
		port:   cfg.SMTPPort,
		user:   cfg.SMTPUsername,
		pass:   cfg.SMTPPassword,
		from:   cfg.SMTPFrom,
		logger: logger.Named("SMTPService"),
	}
}

// Send delivers a single HTML message. Any failure is returned to the caller
// unchanged; nothing is queued or retried here.
func (s *SMTPService) Send(ctx context.Context, to, subject, htmlBody string) error {
	headers := map[string]string{
		"From":         s.from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}
	var sb strings.Builder
	for k, v := range headers {
		sb.WriteString(k + ": " + v + "\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Quit(); err != nil {
			s.logger.Debug("SMTP client quit error", zap.Error(err))
		}
	}()

	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: s.host}
		if err := c.StartTLS(tlsCfg); err != nil {
			return err
		}
		// Re-issue EHLO after TLS so extensions are refreshed.
		if err := c.Hello("localhost"); err != nil {
			return err
		}
	}

	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(sb.String())); err != nil {
		return err
	}
	return w.Close()
}

// VerificationLink builds the token-bearing link embedded in the verification
// email. The token is an opaque bearer credential.
func VerificationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/donor/verify-email?token=%s", strings.TrimSuffix(baseURL, "/"), url.QueryEscape(token))
}

// VerificationEmailBody renders the verification email for a newly registered donor.
func VerificationEmailBody(donorName, verificationURL string) string {
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>Thanks for registering as a blood donor. Please verify your email by clicking the link below:</p>
<a href="%s">Verify Email</a>
<p>If you did not register, ignore this email.</p>`,
		template.HTMLEscapeString(donorName), verificationURL)
}

// ContactRequestEmailBody renders the email relayed to a donor when a seeker
// submits a contact request.
func ContactRequestEmailBody(donorName, requesterPhone, message string) string {
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>Someone is looking for a blood donor and would like to get in touch with you.</p>
<p><b>Contact number:</b> %s</p>
<p><b>Message:</b> %s</p>
<p>If you are able to help, please reach out to them directly.</p>`,
		template.HTMLEscapeString(donorName),
		template.HTMLEscapeString(requesterPhone),
		template.HTMLEscapeString(message))
}
