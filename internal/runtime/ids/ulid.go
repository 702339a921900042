// Package ids issues the call ids that correlate a request with its reply.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// generator hands out strictly increasing ULIDs, also within one millisecond.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var calls = &generator{entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}

func (g *generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// CreateULID returns a new call id: a 26-character ULID that sorts by issue
// time.
func CreateULID() string {
	return calls.next()
}

// IssuedAt returns the time encoded in a call id. Ids issued by a backend or
// malformed ids report false.
func IssuedAt(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
