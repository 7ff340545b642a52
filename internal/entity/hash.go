package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored values.
const (
	DomainState  = "hvaccore/state/v1"
	DomainEntity = "hvaccore/entity/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of a single entity, derived state included.
func Hash(e Entity) (string, error) {
	data, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("hash entity %q: %w", e.ID, err)
	}
	return hashWithDomain(DomainEntity, data), nil
}

// Fingerprint hashes an ordered entity list. Two stores with the same
// fingerprint hold identical objects in the same order, derived values
// included, which is what undo/redo round-trips are checked against.
func Fingerprint(entities []Entity) (string, error) {
	if entities == nil {
		entities = []Entity{}
	}
	data, err := MarshalCanonical(entities)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}
