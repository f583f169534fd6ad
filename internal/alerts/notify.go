package alerts

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"trackit/internal/log"
)

// Notifier delivers the alerts of one session.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, alerts []Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentAlerts)}
}

func (n *LogNotifier) Notify(ctx context.Context, sessionID string, alerts []Alert) error {
	for _, a := range alerts {
		args := []any{
			log.FieldSessionID, sessionID,
			log.FieldAlert, a.Kind,
			"severity", a.Severity.String(),
			"message", a.Message,
		}
		if a.RecordID != "" {
			args = append(args, log.FieldRecordID, a.RecordID)
		}
		switch a.Severity {
		case SeverityCritical:
			n.logger.ErrorContext(ctx, "Alert", args...)
		case SeverityWarning:
			n.logger.WarnContext(ctx, "Alert", args...)
		default:
			n.logger.InfoContext(ctx, "Alert", args...)
		}
	}
	return nil
}

// EmailConfig configures the SMTP notifier.
type EmailConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends one plain-text digest per session.
type EmailNotifier struct {
	cfg  EmailConfig
	send func(e *email.Email) error
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg}
	n.send = func(e *email.Email) error {
		var auth smtp.Auth
		if cfg.Username != "" {
			host, _, err := net.SplitHostPort(cfg.Addr)
			if err != nil {
				host = cfg.Addr
			}
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
		}
		return e.Send(cfg.Addr, auth)
	}
	return n
}

func (n *EmailNotifier) Notify(ctx context.Context, sessionID string, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To
	e.Subject = subject(alerts)
	e.Text = []byte(digest(sessionID, alerts))

	if err := n.send(e); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

func subject(alerts []Alert) string {
	top := alerts[0].Severity
	for _, a := range alerts[1:] {
		if a.Severity > top {
			top = a.Severity
		}
	}
	if len(alerts) == 1 {
		return fmt.Sprintf("[trackit] %s: 1 alert", top)
	}
	return fmt.Sprintf("[trackit] %s: %d alerts", top, len(alerts))
}

func digest(sessionID string, alerts []Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alerts for session %s\n\n", sessionID)
	for _, a := range alerts {
		fmt.Fprintf(&b, "- [%s] %s\n", a.Severity, a.Message)
	}
	return b.String()
}

// MultiNotifier fans alerts out to several notifiers and returns the first
// error after trying all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, sessionID string, alerts []Alert) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, sessionID, alerts); err != nil && first == nil {
			first = err
		}
	}
	return first
}
