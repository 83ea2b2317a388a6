package store

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Challenge ids are ULIDs: they sort by creation time and never contain the
// path separator, so they are safe as a single key segment.
var ids = struct {
	sync.Mutex
	entropy io.Reader
}{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}

func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt mints an id stamped with at. Ids minted in the same millisecond
// still increase.
func NewIDAt(at time.Time) string {
	ids.Lock()
	defer ids.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), ids.entropy).String()
}

// IDTime reports the instant encoded in an id produced by NewIDAt.
func IDTime(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
