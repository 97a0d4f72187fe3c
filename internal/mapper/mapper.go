// ABOUTME: Shared conversion helpers for the mapper package.
// ABOUTME: Timestamps travel as epoch millis; zero time maps to 0.
package mapper

import (
	"errors"
	"time"

	"github.com/harperreed/fitsync/internal/remote"
)

// ErrMissingID is returned for documents that carry no id and cannot be addressed.
var ErrMissingID = errors.New("document has no id")

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func millisPtr(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return millis(*t)
}

func fromMillisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}

// docMillis returns nil for an unset timestamp so documents carry null.
func docMillis(ms int64) any {
	if ms == 0 {
		return nil
	}
	return ms
}

func docID(d remote.Document) (string, error) {
	id := d.String("id")
	if id == "" {
		return "", ErrMissingID
	}
	return id, nil
}
