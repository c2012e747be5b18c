package subscription

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Webhook topics handled by the engine. Anything else is acknowledged and
// ignored.
const (
	TopicPayment     = "payment"
	TopicPreapproval = "preapproval"
)

// Event is a parsed provider notification. The payload is trusted only as a
// trigger: the engine re-fetches canonical remote state by ResourceID and
// never branches on other body fields.
type Event struct {
	Topic      string
	ResourceID string
	Raw        map[string]any
}

// Candidate locations for the remote object id: the exact field varies by
// notification version. First non-empty match wins.
var eventIDFields = []string{"data.id", "id", "subscription_id", "preapproval_id"}

// ParseEvent extracts the topic discriminator and remote object id from a
// webhook body. Syntactically invalid JSON returns ErrInvalidWebhookPayload;
// a payload with no topic or id parses into an Event with empty fields so
// the caller can acknowledge and skip it.
func ParseEvent(body []byte) (*Event, error) {
	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, errors.Join(ErrInvalidWebhookPayload, err)
		}
	}

	event := &Event{
		Topic: stringField(payload, "topic"),
		Raw:   payload,
	}
	if event.Topic == "" {
		event.Topic = stringField(payload, "type")
	}

	for _, field := range eventIDFields {
		if id := lookupID(payload, field); id != "" {
			event.ResourceID = id
			break
		}
	}

	return event, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// lookupID resolves a possibly nested field ("data.id") to a string id.
// Payment notification ids arrive as JSON numbers, so numeric values are
// formatted rather than rejected.
func lookupID(m map[string]any, field string) string {
	cur := any(m)
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := cur.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
