package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// NewAuthoritativeID returns a fresh random 16-byte-hex id, the form the
// server assigns on every create.
func NewAuthoritativeID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// TempIDGenerator hands out client-local temp-%020d ids in strictly
// ascending order. It is reset to zero after every successful journal
// flush.
type TempIDGenerator struct {
	next atomic.Int64
}

// NewTempIDGenerator returns a generator starting at zero.
func NewTempIDGenerator() *TempIDGenerator {
	return &TempIDGenerator{}
}

// Next returns the next temp id and advances the counter.
func (g *TempIDGenerator) Next() string {
	n := g.next.Add(1) - 1
	return FormatTempID(n)
}

// Reset returns the counter to zero, as required after a journal flush
// clears every temp id it was tracking.
func (g *TempIDGenerator) Reset() {
	g.next.Store(0)
}

// FormatTempID renders the zero-padded temp id for ordinal n.
func FormatTempID(n int64) string {
	return fmt.Sprintf("%s%020d", model.TempIDPrefix, n)
}

// IsTempID reports whether id has the client-local temp id shape.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, model.TempIDPrefix)
}

// TempOrdinal extracts the ordinal n from a temp-%020d id. It returns an
// error if id is not a well-formed temp id.
func TempOrdinal(id string) (int64, error) {
	if !IsTempID(id) {
		return 0, fmt.Errorf("idgen: %q is not a temp id", id)
	}
	suffix := strings.TrimPrefix(id, model.TempIDPrefix)
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("idgen: malformed temp id %q: %w", id, err)
	}
	return n, nil
}
