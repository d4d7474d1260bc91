package billing

import "time"

// Config holds the processor-independent billing settings.
type Config struct {
	Processor          string        `env:"BILLING_PROCESSOR" envDefault:"stripe"`
	SuccessURL         string        `env:"BILLING_SUCCESS_URL,required"`
	ProcessorTimeout   time.Duration `env:"BILLING_PROCESSOR_TIMEOUT" envDefault:"10s"`
	NotifyTimeout      time.Duration `env:"BILLING_NOTIFY_TIMEOUT" envDefault:"15s"`
	StoreRetryAttempts uint64        `env:"BILLING_STORE_RETRY_ATTEMPTS" envDefault:"5"`
	StoreRetryInterval time.Duration `env:"BILLING_STORE_RETRY_INTERVAL" envDefault:"100ms"`
	EventLogTTL        time.Duration `env:"BILLING_EVENT_LOG_TTL" envDefault:"72h"`

	// RequestIDHeaders are tried after X-Request-ID when correlating a
	// request, e.g. the trace header set by the edge proxy.
	RequestIDHeaders []string `env:"BILLING_REQUEST_ID_HEADERS" envSeparator:"," envDefault:"X-Correlation-ID,Cf-Ray"`
}

// DefaultConfig returns the settings used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		Processor:          "stripe",
		ProcessorTimeout:   10 * time.Second,
		NotifyTimeout:      15 * time.Second,
		StoreRetryAttempts: 5,
		StoreRetryInterval: 100 * time.Millisecond,
		EventLogTTL:        72 * time.Hour,
		RequestIDHeaders:   []string{"X-Correlation-ID", "Cf-Ray"},
	}
}
