package errtrack

type Config struct {
	DSN         string  `env:"SENTRY_DSN"`
	Environment string  `env:"APP_ENV" envDefault:"development"`
	Release     string  `env:"APP_VERSION"`
	SampleRate  float64 `env:"SENTRY_SAMPLE_RATE" envDefault:"1.0"`
}
