package ids

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable identifier used as a primary key
// for user records and as a token id.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
