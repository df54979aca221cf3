package queuelog

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// DecodeCursor parses an opaque page cursor. An empty string is the first page.
func DecodeCursor(cursorStr string) (*Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt, id int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &id); err != nil {
		return nil, fmt.Errorf("invalid id in cursor: %w", err)
	}

	return &Cursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		ID:        id,
	}, nil
}

// EncodeCursor renders the cursor of the given entry
func EncodeCursor(cursor *Cursor) string {
	cs := fmt.Sprintf("%d|%d", cursor.CreatedAt.UnixNano(), cursor.ID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}

// Page cuts an over-fetched result down to pageSize and returns the cursor
// of the next page, or an empty string on the last page
func Page(entries []Entry, pageSize int) ([]Entry, string) {
	if len(entries) <= pageSize {
		return entries, ""
	}

	entries = entries[:pageSize]
	last := entries[len(entries)-1]
	return entries, EncodeCursor(&Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
}
