// Package auth signs users in through the hosted auth provider and maintains their
// application profiles.
//
// Sign-in exchanges a Google id token for a provider session. The first sign-in of a
// user provisions a row in user_profiles; failing to do so is logged and does not fail
// the sign-in. Every provider failure is reported as apperr.Unauthorized.
//
// When a JWT secret is configured, bearer access tokens are verified locally before
// any provider call.
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// IdentityProvider is the hosted auth provider. *GoTrueClient implements it.
type IdentityProvider interface {
	SignInWithIDToken(ctx context.Context, provider, idToken string) (Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (Session, error)
	GetUser(ctx context.Context, accessToken string) (ProviderUser, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ProfileStore persists user profiles. *gateway.Gateway implements it.
type ProfileStore interface {
	FindProfile(ctx context.Context, userID string) (*gateway.UserProfile, error)
	InsertProfile(ctx context.Context, profile *gateway.UserProfile) (*gateway.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch gateway.ProfilePatch) (*gateway.UserProfile, error)
}

// User is the public view of an authenticated user.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Response is returned by sign-in and refresh.
type Response struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	IsNewUser    bool   `json:"isNewUser"`
}

// Profile is the public view of a user profile.
type Profile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	SoftPreferences *string   `json:"softPreferences,omitempty"`
	HardPreferences *string   `json:"hardPreferences,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UpdateProfileInput changes profile preferences. Nil fields are left unchanged.
type UpdateProfileInput struct {
	SoftPreferences *string `json:"softPreferences"`
	HardPreferences *string `json:"hardPreferences"`
}

// Service implements the auth operations.
type Service struct {
	provider IdentityProvider
	profiles ProfileStore
	verifier *TokenVerifier
	logger   *slog.Logger
}

// NewService creates an auth Service. verifier may be nil.
func NewService(provider IdentityProvider, profiles ProfileStore, verifier *TokenVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		profiles: profiles,
		verifier: verifier,
		logger:   logger.With("component", "auth"),
	}
}

// SignInWithGoogle exchanges a Google id token for a session and provisions the user's
// profile on first sign-in.
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (Response, error) {
	session, err := s.provider.SignInWithIDToken(ctx, "google", idToken)
	if err != nil {
		s.logger.Warn("google sign-in rejected", "error", err)
		return Response{}, apperr.Unauthorized("%s", providerMessage(err, "Failed to authenticate with Google"))
	}
	if session.User == nil || session.AccessToken == "" {
		return Response{}, apperr.Unauthorized("Authentication failed")
	}

	isNewUser := s.ensureProfile(ctx, *session.User)

	return Response{
		User:         publicUser(*session.User),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		IsNewUser:    isNewUser,
	}, nil
}

// ensureProfile creates the profile row when none exists and reports whether it did.
// Store failures are logged only.
func (s *Service) ensureProfile(ctx context.Context, user ProviderUser) bool {
	_, err := s.profiles.FindProfile(ctx, user.ID)
	if err == nil {
		return false
	}
	if !gateway.IsNoRows(err) {
		s.logger.Error("error checking user profile", "user_id", user.ID, "error", err)
		return false
	}

	_, err = s.profiles.InsertProfile(ctx, &gateway.UserProfile{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.metadata("full_name"),
		AvatarURL: user.metadata("avatar_url"),
	})
	if err != nil {
		s.logger.Error("error creating user profile", "user_id", user.ID, "error", err)
	} else {
		s.logger.Info("created user profile", "user_id", user.ID)
	}
	return true
}

// SignOut revokes the session of accessToken.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if err := s.verify(accessToken); err != nil {
		return err
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("sign-out rejected", "error", err)
		return apperr.Unauthorized("Failed to sign out")
	}
	return nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Response, error) {
	session, err := s.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("token refresh rejected", "error", err)
		return Response{}, apperr.Unauthorized("%s", providerMessage(err, "Failed to refresh token"))
	}
	if session.User == nil || session.AccessToken == "" {
		return Response{}, apperr.Unauthorized("Failed to refresh session")
	}

	return Response{
		User:         publicUser(*session.User),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}, nil
}

// CurrentUser resolves the user owning accessToken.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (User, error) {
	user, err := s.resolve(ctx, accessToken)
	if err != nil {
		return User{}, err
	}
	return publicUser(user), nil
}

// UpdateProfile changes the preferences of the user owning accessToken.
func (s *Service) UpdateProfile(ctx context.Context, accessToken string, input UpdateProfileInput) (Profile, error) {
	user, err := s.resolve(ctx, accessToken)
	if err != nil {
		return Profile{}, apperr.Unauthorized("Invalid access token")
	}

	profile, err := s.profiles.UpdateProfile(ctx, user.ID, gateway.ProfilePatch{
		SoftPreferences: input.SoftPreferences,
		HardPreferences: input.HardPreferences,
	})
	if err != nil {
		if gateway.IsNoRows(err) {
			return Profile{}, apperr.NotFound("User profile not found for user ID: %s", user.ID)
		}
		s.logger.Error("error updating user profile", "user_id", user.ID, "error", err)
		return Profile{}, apperr.Upstream("Failed to update user profile", err)
	}
	return publicProfile(profile), nil
}

// GetProfile returns the profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	profile, err := s.profiles.FindProfile(ctx, userID)
	if err != nil {
		if gateway.IsNoRows(err) {
			return Profile{}, apperr.NotFound("User profile not found for user ID: %s", userID)
		}
		s.logger.Error("error retrieving user profile", "user_id", userID, "error", err)
		return Profile{}, apperr.Upstream("Failed to retrieve user profile", err)
	}
	return publicProfile(profile), nil
}

func (s *Service) resolve(ctx context.Context, accessToken string) (ProviderUser, error) {
	if err := s.verify(accessToken); err != nil {
		return ProviderUser{}, err
	}
	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return ProviderUser{}, apperr.Unauthorized("%s", providerMessage(err, "Failed to get user"))
	}
	if user.ID == "" {
		return ProviderUser{}, apperr.Unauthorized("User not found")
	}
	return user, nil
}

func (s *Service) verify(accessToken string) error {
	if s.verifier == nil {
		return nil
	}
	if _, err := s.verifier.Verify(accessToken); err != nil {
		s.logger.Debug("access token rejected locally", "error", err)
		return apperr.Unauthorized("Invalid access token")
	}
	return nil
}

func publicUser(u ProviderUser) User {
	return User{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.metadata("full_name"),
		Avatar: u.metadata("avatar_url"),
	}
}

func publicProfile(p *gateway.UserProfile) Profile {
	return Profile{
		ID:              p.ID.String(),
		UserID:          p.UserID,
		Email:           p.Email,
		Name:            p.Name,
		AvatarURL:       p.AvatarURL,
		SoftPreferences: p.SoftPreferences,
		HardPreferences: p.HardPreferences,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
