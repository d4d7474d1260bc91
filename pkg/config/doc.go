// Package config loads typed configuration from environment variables with
// github.com/caarlos0/env/v11, after reading an optional .env file with
// github.com/joho/godotenv.
//
// Each package owns its Config struct and tags; the server assembles them:
//
//	var cfg billing.Config
//	config.MustLoad(&cfg)
package config
