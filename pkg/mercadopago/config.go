package mercadopago

import "strings"

// Mode selects which Mercado Pago environment checkout URLs target.
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// ParseMode normalizes the operating mode from its recognized aliases.
// Unrecognized values resolve to production: accidentally running a billing
// service against sandbox is the more expensive mistake.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "sandbox", "test":
		return ModeSandbox
	default:
		return ModeProduction
	}
}

// Config holds Mercado Pago credentials and environment settings.
// WebhookURL is validated at checkout-creation time rather than at client
// construction, since read-only flows work without it.
type Config struct {
	AccessToken string `env:"MERCADOPAGO_ACCESS_TOKEN,required"`
	APIHost     string `env:"MERCADOPAGO_API_HOST" envDefault:"api.mercadopago.com"`
	Mode        string `env:"MERCADOPAGO_MODE" envDefault:"production"`
	BackURL     string `env:"MERCADOPAGO_BACK_URL"`
	WebhookURL  string `env:"MERCADOPAGO_WEBHOOK_URL"`
}

// Sandbox reports whether the configured mode resolves to sandbox.
func (c Config) Sandbox() bool {
	return ParseMode(c.Mode) == ModeSandbox
}
