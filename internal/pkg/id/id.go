package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID string. ULIDs sort by creation time, so dispatch
// ids in the logs line up with submission order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
