// Package id generates short identifiers used to correlate log lines.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// alphabet avoids characters that need quoting in shells or log parsers.
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	// RunLength is the length of the random part of a run ID.
	RunLength = 12

	runPrefix = "run"
)

// Generate creates a prefixed ID with a random part of the given length.
// Format: prefix-random (e.g., "run-0f3kq9zt1m2b").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string, length int) (string, error) {
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string, length int) string {
	id, err := Generate(prefix, length)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Run returns a new ID for one command execution. Generation failures
// degrade to an empty ID: a missing correlation token must never block a
// dispatch.
func Run() string {
	id, err := Generate(runPrefix, RunLength)
	if err != nil {
		return ""
	}
	return id
}
