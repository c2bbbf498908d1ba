package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
	"github.com/CalHacks12USF/fregister-backend/pkg/testsupport"
)

type mockProvider struct {
	signInCount  int
	getUserCount int
	signOutCount int

	session Session
	user    ProviderUser
	err     error
}

func (m *mockProvider) SignInWithIDToken(ctx context.Context, provider, idToken string) (Session, error) {
	m.signInCount++
	return m.session, m.err
}

func (m *mockProvider) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	return m.session, m.err
}

func (m *mockProvider) GetUser(ctx context.Context, accessToken string) (ProviderUser, error) {
	m.getUserCount++
	return m.user, m.err
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	m.signOutCount++
	return m.err
}

// failingProfiles fails every call with err.
type failingProfiles struct {
	insertCount int
	findErr     error
	insertErr   error
}

func (f *failingProfiles) FindProfile(ctx context.Context, userID string) (*gateway.UserProfile, error) {
	return nil, f.findErr
}

func (f *failingProfiles) InsertProfile(ctx context.Context, profile *gateway.UserProfile) (*gateway.UserProfile, error) {
	f.insertCount++
	return nil, f.insertErr
}

func (f *failingProfiles) UpdateProfile(ctx context.Context, userID string, patch gateway.ProfilePatch) (*gateway.UserProfile, error) {
	return nil, f.findErr
}

func googleSession() Session {
	return Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User: &ProviderUser{
			ID:           "user-1",
			Email:        "ada@example.com",
			UserMetadata: map[string]any{"full_name": "Ada", "avatar_url": "https://img/ada.png"},
		},
	}
}

func TestSignInWithGoogle_ProvisionsProfileOnce(t *testing.T) {
	gw := testsupport.NewGateway(t)
	provider := &mockProvider{session: googleSession()}
	svc := NewService(provider, gw, nil, nil)
	ctx := context.Background()

	first, err := svc.SignInWithGoogle(ctx, "id-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.IsNewUser {
		t.Error("expected first sign-in to create a user")
	}
	if first.User.Name != "Ada" || first.User.Avatar != "https://img/ada.png" || first.AccessToken != "access" {
		t.Errorf("unexpected response %+v", first)
	}

	profile, err := gw.FindProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("expected a provisioned profile: %v", err)
	}
	if profile.Email != "ada@example.com" || profile.Name != "Ada" {
		t.Errorf("unexpected profile %+v", profile)
	}

	second, err := svc.SignInWithGoogle(ctx, "id-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.IsNewUser {
		t.Error("expected returning user")
	}
}

func TestSignInWithGoogle_ProfileFailuresAreNotFatal(t *testing.T) {
	tests := []struct {
		name        string
		profiles    *failingProfiles
		wantNew     bool
		wantInserts int
	}{
		{
			name:        "insert fails",
			profiles:    &failingProfiles{findErr: gateway.NoRows("user_profiles"), insertErr: errors.New("permission denied")},
			wantNew:     true,
			wantInserts: 1,
		},
		{
			name:     "lookup fails",
			profiles: &failingProfiles{findErr: errors.New("timeout")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockProvider{session: googleSession()}, tt.profiles, nil, nil)

			resp, err := svc.SignInWithGoogle(context.Background(), "id-token")
			if err != nil {
				t.Fatalf("expected sign-in to succeed, got %v", err)
			}
			if resp.IsNewUser != tt.wantNew {
				t.Errorf("expected IsNewUser=%v", tt.wantNew)
			}
			if tt.profiles.insertCount != tt.wantInserts {
				t.Errorf("expected %d inserts, got %d", tt.wantInserts, tt.profiles.insertCount)
			}
		})
	}
}

func TestSignInWithGoogle_ProviderFailure(t *testing.T) {
	provider := &mockProvider{err: &ProviderError{Status: 400, Message: "Bad ID token"}}
	svc := NewService(provider, &failingProfiles{}, nil, nil)

	_, err := svc.SignInWithGoogle(context.Background(), "bad")
	if !apperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if apperr.Message(err) != "Bad ID token" {
		t.Errorf("expected provider message, got %q", apperr.Message(err))
	}
}

func TestRefresh_NeverNewUser(t *testing.T) {
	svc := NewService(&mockProvider{session: googleSession()}, &failingProfiles{}, nil, nil)

	resp, err := svc.Refresh(context.Background(), "refresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IsNewUser {
		t.Error("expected IsNewUser=false on refresh")
	}
	if resp.RefreshToken != "refresh" {
		t.Errorf("unexpected refresh token %q", resp.RefreshToken)
	}
}

func TestCurrentUser_ProviderFailure(t *testing.T) {
	svc := NewService(&mockProvider{err: errors.New("connection reset")}, &failingProfiles{}, nil, nil)

	_, err := svc.CurrentUser(context.Background(), "access")
	if !apperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestVerifierRejectsBeforeProviderCall(t *testing.T) {
	provider := &mockProvider{user: ProviderUser{ID: "user-1"}}
	verifier := NewTokenVerifier("project-secret")
	svc := NewService(provider, &failingProfiles{}, verifier, nil)

	expired := signToken(t, jwt.SigningMethodHS256, []byte("project-secret"), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, err := svc.CurrentUser(context.Background(), expired); !apperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := svc.SignOut(context.Background(), expired); !apperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if provider.getUserCount != 0 || provider.signOutCount != 0 {
		t.Error("expected no provider calls for a locally rejected token")
	}

	valid := signToken(t, jwt.SigningMethodHS256, []byte("project-secret"), jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := svc.CurrentUser(context.Background(), valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.getUserCount != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.getUserCount)
	}
}

func TestUpdateProfile(t *testing.T) {
	gw := testsupport.NewGateway(t)
	provider := &mockProvider{session: googleSession(), user: *googleSession().User}
	svc := NewService(provider, gw, nil, nil)
	ctx := context.Background()

	soft := "vegetarian-ish"
	if _, err := svc.UpdateProfile(ctx, "access", UpdateProfileInput{SoftPreferences: &soft}); !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound before the profile exists, got %v", err)
	}

	if _, err := svc.SignInWithGoogle(ctx, "id-token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hard := "no peanuts"
	profile, err := svc.UpdateProfile(ctx, "access", UpdateProfileInput{SoftPreferences: &soft, HardPreferences: &hard})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.SoftPreferences == nil || *profile.SoftPreferences != soft {
		t.Errorf("unexpected soft preferences %v", profile.SoftPreferences)
	}
	if profile.HardPreferences == nil || *profile.HardPreferences != hard {
		t.Errorf("unexpected hard preferences %v", profile.HardPreferences)
	}

	fetched, err := svc.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.UserID != "user-1" || fetched.HardPreferences == nil {
		t.Errorf("unexpected profile %+v", fetched)
	}
}

func TestUpdateProfile_InvalidToken(t *testing.T) {
	svc := NewService(&mockProvider{err: errors.New("bad token")}, &failingProfiles{}, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), "access", UpdateProfileInput{})
	if !apperr.IsUnauthorized(err) || apperr.Message(err) != "Invalid access token" {
		t.Fatalf("expected Unauthorized invalid access token, got %v", err)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	gw := testsupport.NewGateway(t)
	svc := NewService(&mockProvider{}, gw, nil, nil)

	_, err := svc.GetProfile(context.Background(), "nobody")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
