package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// entropy is monotonic so two IDs minted in the same millisecond still sort
// in creation order. Latest-record queries key on this.
var entropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), entropy).String()
}
