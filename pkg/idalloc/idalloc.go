// Package idalloc generates collision-free identifiers for workflow nodes and
// edges.
//
// Identifiers have the form "<prefix>_<suffix>". The suffix comes from a
// cryptographically strong random UUID when the system random source works,
// and from a timestamp, a per-allocator counter, and a pseudo-random suffix
// otherwise.
//
// An [Allocator] gives up after [MaxAttempts] collisions in a row and returns
// [ErrAllocationExhausted]. That can only happen when the caller's ID set or
// the random source is broken, so the error is not retried.
package idalloc

import (
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowmend/pkg/errors"
)

// MaxAttempts bounds the retry loop of [Allocator.Allocate].
const MaxAttempts = 100

// suffixLen is the number of hex characters kept from a random UUID.
const suffixLen = 12

// ErrAllocationExhausted is returned when no free identifier was found within
// MaxAttempts tries.
var ErrAllocationExhausted = stderrors.New("identifier space exhausted")

// Source produces a candidate identifier suffix.
type Source func() (string, error)

// Allocator hands out identifiers that are absent from a caller-supplied set.
// An Allocator is not safe for concurrent use; create one per repair call.
type Allocator struct {
	// Source overrides the random suffix generator. Tests use it to inject
	// collisions.
	Source Source

	counter uint64
	now     func() time.Time
}

// New returns an allocator backed by the UUID random source.
func New() *Allocator {
	return &Allocator{now: time.Now}
}

// Allocate returns an identifier with the given prefix that is not in
// existing, and adds it to existing. existing must not be nil.
func (a *Allocator) Allocate(prefix string, existing map[string]bool) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		suffix, err := a.next()
		if err != nil {
			continue
		}
		id := prefix + "_" + suffix
		if !existing[id] {
			existing[id] = true
			return id, nil
		}
	}
	return "", errors.Wrap(errors.ErrCodeAllocationExhausted, ErrAllocationExhausted,
		"no free %q identifier after %d attempts", prefix, MaxAttempts)
}

func (a *Allocator) next() (string, error) {
	if a.Source != nil {
		return a.Source()
	}
	u, err := uuid.NewRandom()
	if err != nil {
		return a.fallback(), nil
	}
	return strings.ReplaceAll(u.String(), "-", "")[:suffixLen], nil
}

// fallback builds a suffix from the current time, a counter, and a
// pseudo-random tail. Used only when the system random source fails.
func (a *Allocator) fallback() string {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	a.counter++
	return fmt.Sprintf("%x%x%04x", now().UnixMilli(), a.counter, rand.IntN(0x10000))
}
