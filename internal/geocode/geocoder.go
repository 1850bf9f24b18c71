package geocode

import (
	"context"
	"errors"

	"github.com/beli-buzz/backend/internal/models"
)

// ErrProvider marks a transient provider failure. Distinct from a no-match,
// which is a legitimate nil result and gets cached.
var ErrProvider = errors.New("geocoding provider error")

// ErrDisabled is returned when no geocoding credential is configured.
// Unlike a provider no-match it is never cached, so adding a key later
// starts with a clean slate.
var ErrDisabled = errors.New("geocoding disabled")

// Provider resolves a canonical restaurant name to a best-match location.
// A nil location with a nil error means the provider found no match.
type Provider interface {
	Geocode(ctx context.Context, name string) (*models.Location, error)
}

// Disabled is the Provider used when geocoding is not configured.
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (*models.Location, error) {
	return nil, ErrDisabled
}
