package subscription

// UsageInfo reports consumption within the current billing window.
// Limit 0 means unlimited, in which case Remaining is nil.
type UsageInfo struct {
	Used      int64  `json:"used"`
	Remaining *int64 `json:"remaining,omitempty"`
	Limit     int64  `json:"limit"`
}

// newUsageInfo derives remaining quota from a usage count and a limit.
// Remaining never goes negative even when usage overshoots the limit.
func newUsageInfo(used, limit int64) UsageInfo {
	info := UsageInfo{Used: used, Limit: limit}
	if limit > 0 {
		remaining := max(limit-used, 0)
		info.Remaining = &remaining
	}
	return info
}
