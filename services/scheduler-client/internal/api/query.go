package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// The Set helpers only add a parameter when the field is set, so an absent
// filter never reaches the server as an empty value.

func SetInt(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

func SetBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

func SetTime(q url.Values, key string, v *time.Time) {
	if v != nil && !v.IsZero() {
		q.Set(key, v.UTC().Format(time.RFC3339Nano))
	}
}

// ResourceID validates a path id and returns its canonical form.
func ResourceID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed.String(), nil
}
