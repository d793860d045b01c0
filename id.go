package kitabi

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a time-sortable UUIDv7 used as a record ID.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
