package mercadopago_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agendahub/billing/pkg/mercadopago"
)

func TestSelectCheckoutURL(t *testing.T) {
	tests := []struct {
		name    string
		resp    map[string]any
		sandbox bool
		want    string
	}{
		{
			name:    "sandbox prefers sandbox url",
			resp:    map[string]any{"sandbox_init_point": "https://sandbox", "init_point": "https://prod"},
			sandbox: true,
			want:    "https://sandbox",
		},
		{
			name:    "sandbox falls back to production",
			resp:    map[string]any{"init_point": "https://prod"},
			sandbox: true,
			want:    "https://prod",
		},
		{
			name:    "production prefers production url",
			resp:    map[string]any{"sandbox_init_point": "https://sandbox", "init_point": "https://prod"},
			sandbox: false,
			want:    "https://prod",
		},
		{
			name:    "production falls back to sandbox",
			resp:    map[string]any{"sandbox_url": "https://sandbox"},
			sandbox: false,
			want:    "https://sandbox",
		},
		{
			name:    "alternate field names",
			resp:    map[string]any{"checkout_url": "https://alt"},
			sandbox: false,
			want:    "https://alt",
		},
		{
			name:    "no candidates",
			resp:    map[string]any{"id": "sub-1"},
			sandbox: true,
			want:    "",
		},
		{
			name:    "nil response",
			resp:    nil,
			sandbox: false,
			want:    "",
		},
		{
			name:    "empty strings are skipped",
			resp:    map[string]any{"sandbox_init_point": "", "test_url": "https://test"},
			sandbox: true,
			want:    "https://test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mercadopago.SelectCheckoutURL(tt.resp, tt.sandbox))
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want mercadopago.Mode
	}{
		{"dev", mercadopago.ModeSandbox},
		{"development", mercadopago.ModeSandbox},
		{"sandbox", mercadopago.ModeSandbox},
		{"test", mercadopago.ModeSandbox},
		{"TEST", mercadopago.ModeSandbox},
		{"prod", mercadopago.ModeProduction},
		{"live", mercadopago.ModeProduction},
		{"production", mercadopago.ModeProduction},
		{"", mercadopago.ModeProduction},
		// Unknown values default to production: the safer mode for billing.
		{"staging", mercadopago.ModeProduction},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mercadopago.ParseMode(tt.in), "mode %q", tt.in)
	}
}
