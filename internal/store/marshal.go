package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/nysig/internal/model"
)

// timeLayout stores times as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalSignal converts a signal to its flat JSON record for storage.
// Uses json.Encoder with HTML escaping disabled so labels like "<50%"
// round-trip byte-for-byte.
func marshalSignal(s model.Signal) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("marshal signal: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalSignal parses a stored signal record.
func unmarshalSignal(data string) (model.Signal, error) {
	var s model.Signal
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return model.Signal{}, fmt.Errorf("unmarshal signal: %w", err)
	}
	return s, nil
}

// marshalSnapshot stores the evaluated snapshot as compact JSON.
// A nil snapshot is stored as "null".
func marshalSnapshot(snap *model.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

// unmarshalSnapshot parses a stored snapshot. "null" yields nil.
func unmarshalSnapshot(data string) (*model.Snapshot, error) {
	var snap *model.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}
