package stripe

// Config holds the Stripe credentials and catalog settings.
type Config struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
	Currency      string `env:"STRIPE_CURRENCY" envDefault:"eur"`

	// ProductID attaches created prices to an existing product. When empty,
	// prices carry inline product data named ProductName.
	ProductID   string `env:"STRIPE_PRODUCT_ID"`
	ProductName string `env:"STRIPE_PRODUCT_NAME" envDefault:"Paid ranking"`
}
