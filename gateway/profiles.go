package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FindProfile returns the profile of the given auth user or a NO_ROWS error.
func (g *Gateway) FindProfile(ctx context.Context, userID string) (*UserProfile, error) {
	return g.profiles.Single(ctx, where("user_id", userID))
}

// InsertProfile stores a new profile. ID and timestamps are assigned when zero.
func (g *Gateway) InsertProfile(ctx context.Context, profile *UserProfile) (*UserProfile, error) {
	now := time.Now().UTC()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}
	return g.profiles.Insert(ctx, profile)
}

// UpdateProfile applies patch to the profile of userID and returns the updated row. A
// missing profile yields a NO_ROWS error.
func (g *Gateway) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*UserProfile, error) {
	profile, err := g.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if patch.SoftPreferences != nil {
		profile.SoftPreferences = patch.SoftPreferences
		columns = append(columns, "soft_preferences")
	}
	if patch.HardPreferences != nil {
		profile.HardPreferences = patch.HardPreferences
		columns = append(columns, "hard_preferences")
	}
	profile.UpdatedAt = time.Now().UTC()

	return g.profiles.Update(ctx, profile, columns...)
}
