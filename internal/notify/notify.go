// Package notify delivers operator alerts for failures nobody else will see:
// a price fetch that gave up or a fetch started without a URL.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Alert codes sent along with an alert.
const (
	CodeConfiguration  = 1
	CodeFetchExhausted = 2
)

// SendTimeout bounds one delivery through Send, whatever the notifier.
const SendTimeout = 30 * time.Second

// defaultSMTPTimeout bounds a mail delivery when SMTPConfig.Timeout is unset.
const defaultSMTPTimeout = 10 * time.Second

// Alert is one operator notification.
type Alert struct {
	Subject string
	Detail  string
	Code    int
}

// Notifier defines the interface for sending operator alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Send delivers alert and logs, rather than returns, a delivery failure so
// the error that caused the alert is never masked. Delivery outlives a
// canceled ctx but is cut off after SendTimeout.
func Send(ctx context.Context, n Notifier, logger *slog.Logger, alert Alert) {
	if n == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SendTimeout)
	defer cancel()

	if err := n.Notify(sendCtx, alert); err != nil {
		logger.Error("failed to deliver operator alert",
			"subject", alert.Subject,
			"code", alert.Code,
			"error", err)
	}
}

// LogNotifier writes alerts to the log. Used when no mail server is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier
func (n LogNotifier) Notify(ctx context.Context, alert Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "operator alert",
		"subject", alert.Subject,
		"detail", alert.Detail,
		"code", alert.Code)
	return nil
}

// SMTPConfig holds mail server settings for SMTPNotifier. Timeout bounds
// one delivery from dial to QUIT; zero means 10s.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SMTPNotifier mails alerts to the operators.
type SMTPNotifier struct {
	cfg  SMTPConfig
	dial dialFunc
}

// NewSMTPNotifier creates a notifier that mails alerts through cfg.Host.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTPNotifier{
		cfg:  cfg,
		dial: (&net.Dialer{}).DialContext,
	}
}

// Notify implements Notifier. Every network step shares one deadline, the
// earlier of ctx's and the configured timeout.
func (n *SMTPNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(n.cfg.To) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	conn, err := n.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to mail server %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set mail deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := n.deliver(conn, alert); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) deliver(conn net.Conn, alert Alert) error {
	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return err
		}
	}
	if n.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(n.cfg.From); err != nil {
		return err
	}
	for _, to := range n.cfg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(n.message(alert)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *SMTPNotifier) message(alert Alert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", alert.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\nError code: %d\r\n", alert.Detail, alert.Code)
	return []byte(b.String())
}
