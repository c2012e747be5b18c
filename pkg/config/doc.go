// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 so that
// services can declare typed configuration structs with `env` tags and load
// them in one call:
//
//	type ProviderConfig struct {
//	    AccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN,required"`
//	    APIHost     string `env:"MERCADOPAGO_API_HOST" envDefault:"api.mercadopago.com"`
//	}
//
//	var cfg ProviderConfig
//	config.MustLoad(&cfg)
//
// LoadEnv reads one or more .env files into the process environment before
// parsing; Load falls back to a best-effort read of the default .env in the
// working directory. MustLoad panics on failure, which is the desired
// behavior for configuration the process cannot run without.
package config
