package sis

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type AlerterConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Operators    []string `json:"operators"`
}

// Alerter mails operators when a pipeline run fails on parse drift. A
// parse failure means the upstream markup changed, which no retry will
// fix, somebody has to look at the page.
type Alerter struct {
	config AlerterConfig
}

func NewAlerter(config AlerterConfig) *Alerter {
	return &Alerter{config: config}
}

// ParseFailure sends the alert. Delivery failure is logged, an
// unreachable mail server must not mask the original parse error.
func (a *Alerter) ParseFailure(ctx context.Context, subjectID string, cause error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("EduAssist <%s>", a.config.EmailAddress)
	mail.To = a.config.Operators
	mail.Subject = "Upstream markup drift detected"

	body := fmt.Sprintf(`A scheduled refresh failed because the portal's markup no longer matches the expected structure.

subject: %s
error: %s

Fetched pages are dropped before reconciliation, the stored dataset for this subject is untouched.`, subjectID, cause)
	mail.Text = []byte(body)

	err := mail.Send(
		fmt.Sprintf("%s:%d", a.config.Server, a.config.Port),
		smtp.PlainAuth("", a.config.EmailAddress, a.config.Password, a.config.Server),
	)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to send parse drift alert",
			"subject_id", subjectID,
			"err", err,
		)
	}
}
