package weave

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Id is the opaque 128-bit identifier type used throughout a Weave. It is
// totally ordered and assumed unique within a single Weave; the Weave itself
// never mints one, it only accepts Ids handed to it by callers (§3, §6).
type Id [16]byte

// Nil is the zero Id. It is never a valid node identifier; it is used as a
// sentinel for "no parent" / "no node" in scratch computations.
var Nil Id

// Compare returns the relative order between two Ids: -1, 0 or +1.
func (id Id) Compare(other Id) int {
	return bytes.Compare(id[:], other[:])
}

// String renders the Id in canonical UUID form.
func (id Id) String() string {
	return uuid.UUID(id).String()
}

var idGenerator = newTimeOrderedID // Stubbed for mocking in mocks_test.go.

// NewID mints a fresh, time-ordered Id using the current wall-clock time.
//
// This plays the role of the externally-provided identifier generator named
// in §6 ("new_id(hint) -> Id"): callers outside this package are also free to
// supply their own Ids, so long as they're unique within the Weave.
func NewID() Id {
	return idGenerator(nil)
}

// NewIDWithHint mints a fresh, time-ordered Id whose timestamp component is
// seeded from hintMillis (an epoch-millisecond value) rather than the
// current time. This matches §6's "hint: Option<u64>" contract: the hint,
// when supplied, threads through to the time-ordered bits; the core only
// relies on the result being unique and opaque.
func NewIDWithHint(hintMillis uint64) Id {
	return idGenerator(&hintMillis)
}

// newTimeOrderedID builds a UUIDv7-shaped Id by hand: a 48-bit big-endian
// millisecond timestamp followed by 74 bits of cryptographic randomness,
// with the version and variant nibbles set per RFC 4122. Hand-rolling this
// (rather than calling uuid.NewV7, which doesn't expose a timestamp hint)
// mirrors the manual byte-layout construction idiom of randomUUIDv1.
func newTimeOrderedID(hintMillis *uint64) Id {
	var id Id
	if _, err := io.ReadFull(rand.Reader, id[:]); err != nil {
		panic(fmt.Sprintf("tapestry-weave: reading random bytes: %v", err))
	}
	ms := uint64(time.Now().UnixMilli())
	if hintMillis != nil {
		ms = *hintMillis
	}
	id[0] = byte(ms >> 40)
	id[1] = byte(ms >> 32)
	id[2] = byte(ms >> 24)
	id[3] = byte(ms >> 16)
	id[4] = byte(ms >> 8)
	id[5] = byte(ms)
	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}
