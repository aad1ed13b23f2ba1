package ingest

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewEventID returns a time-ordered 128-bit identifier, monotonic by wall
// clock, for a new Event (spec §3). ULIDs encode a 48-bit millisecond
// timestamp in their high bits followed by 80 bits of randomness, so two ids
// minted in the same process sort by generation time even when several
// events share a millisecond.
func NewEventID(at time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(at), rand.Reader)
	return id.String()
}
