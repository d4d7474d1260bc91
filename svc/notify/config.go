package notify

import "time"

// Config configures the outbound notification destinations. Empty values
// disable the corresponding notifier.
type Config struct {
	WebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret  string        `env:"NOTIFY_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"NOTIFY_WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookRetries int           `env:"NOTIFY_WEBHOOK_RETRIES" envDefault:"3"`

	EmailEnabled bool   `env:"NOTIFY_EMAIL_ENABLED" envDefault:"false"`
	Currency     string `env:"NOTIFY_CURRENCY" envDefault:"EUR"`
	Language     string `env:"NOTIFY_LANGUAGE" envDefault:"en"`
}
