package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/possum/internal/pos"
)

// marshalItems converts line-item snapshots to JSON TEXT for the
// denormalized items column.
func marshalItems(items []pos.LineItem) (string, error) {
	if items == nil {
		items = []pos.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return string(data), nil
}

// unmarshalItems parses the items column back into line-item snapshots.
func unmarshalItems(data string) ([]pos.LineItem, error) {
	if data == "" || data == "[]" {
		return []pos.LineItem{}, nil
	}
	var items []pos.LineItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return items, nil
}

// marshalIDs converts an id set to JSON TEXT for the sync_state columns.
func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

// unmarshalIDs parses a sync_state id column. Empty text is an empty set.
func unmarshalIDs(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	return ids, nil
}

// encodeTime formats a timestamp as RFC 3339 UTC text.
// The zero time encodes as empty text, meaning "never".
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// decodeTime parses RFC 3339 text. Empty text decodes to the zero time.
func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t.UTC(), nil
}
