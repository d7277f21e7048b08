package proofstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Store abstracts the external object storage holding proof-of-payment
// uploads. The core only passes opaque references through; it never
// inspects content.
type Store interface {
	// Verify checks that the reference is well-formed and resolvable.
	Verify(ctx context.Context, reference string) error
}

// MockStore accepts any non-empty reference that parses as a URL or a bare
// storage key. Used in development and tests in place of real object storage.
type MockStore struct{}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (s *MockStore) Verify(ctx context.Context, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return fmt.Errorf("proof reference is empty")
	}
	if strings.Contains(reference, "://") {
		if _, err := url.ParseRequestURI(reference); err != nil {
			return fmt.Errorf("proof reference is not a valid URL: %w", err)
		}
		return nil
	}
	// Bare storage keys: forbid whitespace and path traversal.
	if strings.ContainsAny(reference, " \t\n") || strings.Contains(reference, "..") {
		return fmt.Errorf("proof reference contains invalid characters")
	}
	return nil
}
