package store

import "time"

// parseTimestamp follows the upstream convention: an ISO-8601 timestamp with
// a trailing Z (treated as +00:00), or the current UTC time when the field
// is absent or empty.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	normalized := raw
	if len(normalized) > 0 && normalized[len(normalized)-1] == 'Z' {
		normalized = normalized[:len(normalized)-1] + "+00:00"
	}
	ts, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// stringField reads a string value out of a loosely-typed payload map,
// returning "" if absent or not a string.
func stringField(data map[string]interface{}, key string) string {
	v, ok := data[key].(string)
	if !ok {
		return ""
	}
	return v
}

// firstNonEmpty returns the first non-empty string among candidates, the
// pattern the upstream payloads use for fields that show up under several
// aliases depending on message source (e.g. board/classCode/class_code).
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
