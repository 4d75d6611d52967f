package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/osiris/internal/story"
)

// timeLayout is the created_at format. Fixed width keeps text ordering
// equal to time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalGoalRefs converts parent goal indices to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled.
func marshalGoalRefs(refs []story.GoalRef) (string, error) {
	ids := make([]uint32, len(refs))
	for i, r := range refs {
		ids[i] = uint32(r)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ids); err != nil {
		return "", fmt.Errorf("marshal goal refs: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalGoalRefs parses JSON TEXT written by marshalGoalRefs.
func unmarshalGoalRefs(data string) ([]uint32, error) {
	if data == "" || data == "[]" {
		return []uint32{}, nil
	}
	var ids []uint32
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal goal refs: %w", err)
	}
	return ids, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	return t, nil
}
