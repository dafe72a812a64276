package sync

import (
	"fmt"
	"strings"
	gosync "sync"
)

// Verifier validates a complete answer set for one question group, keyed by
// question text. A non-nil error rejects the record.
type Verifier func(answers map[string]string) error

// VerifierRegistry maps verification function names, as stored on question
// groups, to their implementations. Unknown names are rejected when a group
// record is decoded, not when a verifier is first invoked.
type VerifierRegistry struct {
	mu  gosync.RWMutex
	fns map[string]Verifier
}

// NewVerifierRegistry creates an empty registry.
func NewVerifierRegistry() *VerifierRegistry {
	return &VerifierRegistry{fns: make(map[string]Verifier)}
}

// Register adds or replaces a verifier under the given name.
func (r *VerifierRegistry) Register(name string, fn Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Lookup returns the verifier registered under name.
func (r *VerifierRegistry) Lookup(name string) (Verifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	return fn, ok
}

// DefaultVerifiers returns a registry with the built-in verification
// functions.
func DefaultVerifiers() *VerifierRegistry {
	r := NewVerifierRegistry()
	r.Register("verify_non_empty", VerifyNonEmpty)
	return r
}

// VerifyNonEmpty rejects answer sets where any value is blank.
func VerifyNonEmpty(answers map[string]string) error {
	for question, value := range answers {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("answer for question %q is empty", question)
		}
	}
	return nil
}
