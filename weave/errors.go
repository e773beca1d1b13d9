package weave

import "errors"

// Errors returned by Weave operations.
//
// §7's error taxonomy also names NotFound, Conflict, ContentIncompatible and
// Oversize, but those surface as plain bool/option returns throughout §4's
// mutators (matching §6's language-neutral API surface) rather than as Go
// error values — there is exactly one way for e.g. AddNode to fail in a way
// that matters to a caller deciding what to do next ("it didn't happen"),
// so a bare bool carries the same information a sentinel error would, with
// no wrapping/unwrapping ceremony. Decode and validation failures are
// different: they can happen long after the triggering call (loading a
// snapshot, auditing before a save) and deserve a real error to wrap
// specifics into, so only those two get sentinels.
var (
	// ErrDecode indicates a snapshot failed to parse: bad magic, truncated
	// payload, or unknown version.
	ErrDecode = errors.New("tapestry-weave: snapshot decode failed")
	// ErrCorrupt indicates Validator found the Weave inconsistent. No automatic
	// recovery is attempted; the caller must discard the Weave.
	ErrCorrupt = errors.New("tapestry-weave: weave failed validation")
)

// maxNodes is the size bound from §3: |nodes| < 2^31, so a 32-bit index
// representation stays feasible in the serialized form.
const maxNodes = (1 << 31) - 1
