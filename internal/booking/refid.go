package booking

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"time"
)

// Crockford base32 alphabet: no I, L, O, U, so references survive being
// read over the phone and printed on receipts.
const refAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const refSuffixLen = 10 // 50 bits of entropy per reference

// ReferenceGenerator issues unique, human-readable booking reference
// numbers of the form PREFIX-YYYYMMDD-XXXXXXXXXX. There is no central
// counter; uniqueness comes from 50 random bits per reference.
type ReferenceGenerator struct {
	now  func() time.Time
	rand io.Reader
}

// NewReferenceGenerator creates a generator backed by crypto/rand. An
// unreadable random source is a fatal startup condition, not a per-call
// error, so it panics here rather than failing later.
func NewReferenceGenerator() *ReferenceGenerator {
	probe := make([]byte, 1)
	if _, err := io.ReadFull(crand.Reader, probe); err != nil {
		panic(fmt.Sprintf("booking: random source unavailable: %v", err))
	}
	return &ReferenceGenerator{now: time.Now, rand: crand.Reader}
}

// newReferenceGeneratorWith allows injecting clock and randomness in tests.
func newReferenceGeneratorWith(now func() time.Time, r io.Reader) *ReferenceGenerator {
	return &ReferenceGenerator{now: now, rand: r}
}

// NewReference returns a fresh reference number for the booking type.
func (g *ReferenceGenerator) NewReference(t BookingType) string {
	buf := make([]byte, refSuffixLen)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		// Verified readable at construction; exhaustion here is unrecoverable.
		panic(fmt.Sprintf("booking: random source failed: %v", err))
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", t.ReferencePrefix(), g.now().UTC().Format("20060102"), buf)
}
