package cursor

import (
	"errors"
	"fmt"
	"strconv"
)

// SourceType identifies one change stream. Tokens are only comparable within
// a single source type: Gmail history ids are numeric, Notion edit times are
// RFC3339 timestamps.
type SourceType string

const (
	SourceMail  SourceType = "gmail"
	SourceNotes SourceType = "notion"
)

var (
	ErrUnknownSource = errors.New("cursor: unknown source type")
	ErrBadToken      = errors.New("cursor: malformed token")
)

// Compare orders two tokens of the same source type. Returns a negative
// value when a < b, zero when equal, positive when a > b.
func Compare(source SourceType, a, b string) (int, error) {
	switch source {
	case SourceMail:
		an, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadToken, a)
		}
		bn, err := strconv.ParseUint(b, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadToken, b)
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		}
		return 0, nil
	case SourceNotes:
		// RFC3339 timestamps in UTC order lexically.
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, source)
}
