package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/rankpay/pkg/email"
)

// EmailNotifier mails the provider a summary of their subscription.
type EmailNotifier struct {
	sender  email.EmailSender
	unit    currency.Unit
	printer *message.Printer
}

// NewEmailNotifier creates an e-mail notifier. Amounts are rendered in
// cfg.Currency using the number conventions of cfg.Language.
func NewEmailNotifier(sender email.EmailSender, cfg Config) (*EmailNotifier, error) {
	if sender == nil {
		return nil, errors.New("notify: email sender is required")
	}
	unit, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid currency %q: %w", cfg.Currency, err)
	}
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		tag = language.English
	}
	return &EmailNotifier{
		sender:  sender,
		unit:    unit,
		printer: message.NewPrinter(tag),
	}, nil
}

var emailSubjects = map[Type]string{
	TypeSubscriptionUpdated:   "Your listing subscription was updated",
	TypeSubscriptionConfirmed: "Your payment was confirmed",
	TypeSubscriptionCancelled: "Your paid ranking was cancelled",
}

var emailBody = template.Must(template.New("subscription").Parse(`<p>Hello,</p>
<p>{{.Headline}}</p>
<ul>
<li>Monthly amount: {{.Amount}}</li>
<li>Ranking points: {{.Points}}</li>
{{- range .Options}}
<li>{{.}}</li>
{{- end}}
</ul>`))

type emailData struct {
	Headline string
	Amount   string
	Points   string
	Options  []string
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Email == "" {
		return ErrMissingEmail
	}

	subject, ok := emailSubjects[n.Type]
	if !ok {
		subject = emailSubjects[TypeSubscriptionUpdated]
	}

	data := emailData{
		Headline: subject + ".",
		Amount:   e.FormatAmount(n.Amount),
		Points:   e.printer.Sprintf("%d", n.TotalPoints),
		Options:  enabledOptions(n),
	}
	if n.IsFree {
		data.Amount = "free plan"
	}

	var body bytes.Buffer
	if err := emailBody.Execute(&body, data); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}

	if err := e.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   n.Email,
		Subject:  subject,
		BodyHTML: body.String(),
		Tag:      string(n.Type),
	}); err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	return nil
}

// FormatAmount renders a whole-unit amount with the configured currency symbol.
func (e *EmailNotifier) FormatAmount(amount int64) string {
	return e.printer.Sprint(currency.Symbol(e.unit.Amount(amount)))
}

func enabledOptions(n Notification) []string {
	var opts []string
	if n.BasicListing {
		opts = append(opts, "Basic listing")
	}
	if n.Partner {
		opts = append(opts, "Partner badge")
	}
	if n.PublishPhone {
		opts = append(opts, "Phone number published")
	}
	if n.PublishWebsite {
		opts = append(opts, "Website link published")
	}
	if n.BacklinkHome {
		opts = append(opts, "Backlink on home page")
	}
	if n.BacklinkProfile {
		opts = append(opts, "Backlink on profile page")
	}
	return opts
}
