package paddle

// Config holds configuration for the Paddle processor.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`

	// ProductID is the catalog product that carries the monthly prices.
	ProductID string `env:"PADDLE_PRODUCT_ID,required"`
	Currency  string `env:"PADDLE_CURRENCY" envDefault:"EUR"`
}
