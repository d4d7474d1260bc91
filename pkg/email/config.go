package email

// Config configures outbound mail. Without a Postmark server token the
// service falls back to DevSender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER" envDefault:"billing@rankpay.local"`
	SupportEmail         string `env:"EMAIL_SUPPORT" envDefault:"support@rankpay.local"`
}
