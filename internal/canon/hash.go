package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed ids.
// Version suffix enables future algorithm migration.
const (
	DomainRun    = "stopover/run/v1"
	DomainFiring = "stopover/firing/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Firing is the identity-bearing part of one fired event.
type Firing struct {
	Seq      int64
	Clock    string
	Label    string
	Position string
	Instant  string
}

// Object returns the canonical form of f.
func (f Firing) Object() Object {
	return Object{
		"seq":      f.Seq,
		"clock":    f.Clock,
		"label":    f.Label,
		"position": f.Position,
		"instant":  f.Instant,
	}
}

// FiringID computes the content-addressed id of a firing.
func FiringID(f Firing) (string, error) {
	data, err := Marshal(f.Object())
	if err != nil {
		return "", fmt.Errorf("FiringID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFiring, data), nil
}

// RunID computes the id of a run from its scenario name and the ids of its
// firings in order. Re-running an unchanged scenario yields the same id.
func RunID(scenario string, firingIDs []string) (string, error) {
	data, err := Marshal(Object{
		"scenario": scenario,
		"firings":  firingIDs,
	})
	if err != nil {
		return "", fmt.Errorf("RunID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRun, data), nil
}

// MustFiringID is like FiringID but panics on error.
func MustFiringID(f Firing) string {
	id, err := FiringID(f)
	if err != nil {
		panic(err)
	}
	return id
}
