package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", Validation("name is too short"))

	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnexpected, KindOf(nil))
}

func TestAsWrapsUnclassified(t *testing.T) {
	base := errors.New("boom")

	got := As(base)
	assert.Equal(t, KindUnexpected, got.Kind)
	assert.ErrorIs(t, got, base)

	cfg := Configuration("%s is not set", "STRIPE_SECRET_KEY")
	assert.Same(t, cfg, As(fmt.Errorf("wrap: %w", cfg)))
	assert.Equal(t, "STRIPE_SECRET_KEY is not set", cfg.Message)
}

func TestAuthenticationKeepsDetail(t *testing.T) {
	err := Authentication("signature verification failed", errors.New("timestamp outside tolerance"))

	assert.Equal(t, "timestamp outside tolerance", err.Details)
	assert.Contains(t, err.Error(), "authentication")
}
