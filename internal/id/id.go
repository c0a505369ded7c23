// Package id generates prefixed unique identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a new ID with the given prefix, e.g. "book-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generating nanoid: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, nid), nil
}

// MustGenerate creates a new prefixed ID and panics on failure.
// Nanoid generation only fails when the system's entropy source does.
func MustGenerate(prefix string) string {
	nid, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return nid
}
