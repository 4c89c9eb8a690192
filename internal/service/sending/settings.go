package sending

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/campaign-mailer/internal/domain"
)

// ResolveSettings loads the owner's transport settings and requires them to
// be present and verified.
func ResolveSettings(ctx context.Context, repo SettingsRepository, ownerID string) (*domain.TransportSettings, error) {
	s, err := repo.Get(ctx, ownerID)
	if errors.Is(err, ErrConfigurationMissing) {
		return nil, ErrConfigurationMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load transport settings: %w", err)
	}
	if s == nil || s.FromEmail == "" {
		return nil, ErrConfigurationMissing
	}
	if !s.Verified {
		return nil, ErrConfigurationUnverified
	}
	return s, nil
}
