package mercadopago

// Candidate checkout URL fields across Mercado Pago products and API
// versions, in preference order.
var (
	sandboxURLFields    = []string{"sandbox_init_point", "sandbox_url", "test_url"}
	productionURLFields = []string{"init_point", "url", "checkout_url"}
)

// SelectCheckoutURL picks the redirect target from a checkout/preapproval
// response. In sandbox mode the sandbox URL is preferred with production as
// fallback; in production mode the inverse. Returns "" when no candidate
// field is populated — the caller must treat that as a fatal setup error,
// since checkout cannot proceed without a redirect target.
func SelectCheckoutURL(resp map[string]any, sandbox bool) string {
	if resp == nil {
		return ""
	}

	sandboxURL := firstString(resp, sandboxURLFields...)
	productionURL := firstString(resp, productionURLFields...)

	if sandbox && sandboxURL != "" {
		return sandboxURL
	}
	if productionURL != "" {
		return productionURL
	}
	return sandboxURL
}
