// Package verification issues the short-lived codes that gate transfer
// completion. A code is a deployment prefix plus six random decimal digits,
// unique among codes that could still be presented.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DefaultPrefix matches the production deployment default.
const DefaultPrefix = "TKN"

const issueAttempts = 5

// ErrExhausted occurs when every generation attempt collided with a live code.
var ErrExhausted = errors.New("could not issue a unique verification code")

// PendingIndex tracks codes attached to unresolved transfers. Reserve claims a
// code for ttl and reports false when the code is already held, which is how
// issuance-time uniqueness is enforced. Reservations expire on their own, so
// resolved or abandoned codes become reusable without explicit release.
type PendingIndex interface {
	Reserve(ctx context.Context, code string, ttl time.Duration) (bool, error)
}

// Generator produces verification codes backed by a pending-code index.
type Generator struct {
	prefix string
	ttl    time.Duration
	index  PendingIndex
}

// NewGenerator constructs a generator. The reservation ttl should cover the
// code validity window plus the sweep grace period, so a code stays claimed
// for as long as it could plausibly be presented. Codes are stored and looked
// up upper-case, so a configured prefix is upper-cased here.
func NewGenerator(prefix string, reservationTTL time.Duration, index PendingIndex) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: strings.ToUpper(prefix), ttl: reservationTTL, index: index}
}

// Issue generates a fresh code and reserves it in the index, retrying on
// collision a bounded number of times.
func (g *Generator) Issue(ctx context.Context) (string, error) {
	for attempt := 0; attempt < issueAttempts; attempt++ {
		digits, err := randomSixDigits()
		if err != nil {
			return "", fmt.Errorf("generate code digits: %w", err)
		}
		code := fmt.Sprintf("%s-%06d", g.prefix, digits)

		ok, err := g.index.Reserve(ctx, code, g.ttl)
		if err != nil {
			return "", fmt.Errorf("reserve code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// randomSixDigits returns a value in [100000, 999999].
func randomSixDigits() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900_000))
	if err != nil {
		return 0, err
	}
	return 100_000 + n.Int64(), nil
}
