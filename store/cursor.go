package store

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Listing cursors are keyset tokens over (created_at, id) so pages stay
// stable while drafts are created and deleted underneath the reviewer.

func encodeCursor(createdAt *time.Time, id string) string {
	ts := ""
	if createdAt != nil {
		ts = createdAt.UTC().Format(time.RFC3339Nano)
	}
	return base64.URLEncoding.EncodeToString([]byte(ts + "|" + id))
}

func decodeCursor(cursor string) (*time.Time, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, "", fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, "", fmt.Errorf("malformed cursor")
	}
	if parts[0] == "" {
		return nil, parts[1], nil
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, "", fmt.Errorf("malformed cursor: %w", err)
	}
	return &ts, parts[1], nil
}
