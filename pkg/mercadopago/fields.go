package mercadopago

import (
	"strings"
	"time"
)

// Field names vary across Mercado Pago API versions, so logical values are
// resolved through ordered candidate lists: the first non-empty match wins.
var (
	periodStartFields = []string{"current_period_start_date", "date_created"}
	periodEndFields   = []string{"current_period_end_date", "next_payment_date"}
)

// firstString returns the first non-empty string among the candidate keys.
// A key containing a dot is resolved as a nested lookup ("data.id").
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		cur := any(m)
		found := true
		for _, part := range strings.Split(key, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = obj[part]
			if !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}
		if s, ok := cur.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// parseTime parses a Mercado Pago timestamp. The API emits RFC 3339 with
// fractional seconds and a numeric offset.
func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// SubscriptionID extracts the remote subscription id from an API response.
func SubscriptionID(resp map[string]any) string {
	return firstString(resp, "id")
}

// SubscriptionStatus extracts the remote status string from an API response.
func SubscriptionStatus(resp map[string]any) string {
	return firstString(resp, "status")
}

// PeriodStart extracts the start of the current billing period, falling back
// to the creation date on the older API surface.
func PeriodStart(resp map[string]any) *time.Time {
	return parseTime(firstString(resp, periodStartFields...))
}

// PeriodEnd extracts the end of the current billing period, falling back to
// the next payment date on the older API surface.
func PeriodEnd(resp map[string]any) *time.Time {
	return parseTime(firstString(resp, periodEndFields...))
}

// PaymentPreapprovalID extracts the preapproval id a payment belongs to.
// Empty for one-off payments unrelated to subscriptions.
func PaymentPreapprovalID(resp map[string]any) string {
	return firstString(resp, "preapproval_id")
}

// PaymentStatus extracts the payment status string.
func PaymentStatus(resp map[string]any) string {
	return firstString(resp, "status")
}
