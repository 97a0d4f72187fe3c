// ABOUTME: User family repository: users, auth records, profiles and stats.
// ABOUTME: EnsureUser builds the whole graph for a new sign-in.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/fitsync/internal/mapper"
	"github.com/harperreed/fitsync/internal/models"
	"github.com/harperreed/fitsync/internal/storage"
)

// UserRepository groups the four user-owned families.
type UserRepository struct {
	Users    *Entity[models.User, storage.UserRow, *storage.UserRow]
	Auth     *Entity[models.UserAuth, storage.UserAuthRow, *storage.UserAuthRow]
	Profiles *Entity[models.UserProfile, storage.ProfileRow, *storage.ProfileRow]
	Stats    *Entity[models.UserStats, storage.StatsRow, *storage.StatsRow]

	deps Deps
}

// NewUserRepository binds the user, auth, profile and stats tables.
func NewUserRepository(deps Deps) *UserRepository {
	deps = deps.withDefaults()
	return &UserRepository{
		Users:    newEntity(deps, deps.Store.Users, mapper.Users),
		Auth:     newEntity(deps, deps.Store.Auth, mapper.Auth),
		Profiles: newEntity(deps, deps.Store.Profiles, mapper.Profiles),
		Stats:    newEntity(deps, deps.Store.Stats, mapper.Stats),
		deps:     deps,
	}
}

// FindByEmail returns the local user signed in with email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	auths, err := r.Auth.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range auths {
		if strings.EqualFold(a.Email, email) {
			return r.Users.Get(ctx, a.UserID)
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

// EnsureUser returns the user signed in with email, creating the user,
// auth, profile and stats records on first sign-in.
func (r *UserRepository) EnsureUser(ctx context.Context, email string, provider models.AuthProvider, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if u, err := r.FindByEmail(ctx, email); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := r.deps.Now()
	userID := uuid.New().String()
	auth := &models.UserAuth{
		ID:          uuid.New().String(),
		UserID:      userID,
		Email:       email,
		Provider:    provider,
		CreatedAt:   now,
		LastLoginAt: now,
		Language:    "en",
	}
	profile := &models.UserProfile{ID: uuid.New().String(), UserID: userID, DisplayName: displayName}
	stats := models.NewUserStats(userID)
	user := &models.User{
		ID:        userID,
		AuthID:    auth.ID,
		ProfileID: profile.ID,
		StatsID:   stats.ID,
		CreatedAt: now,
	}

	if _, err := r.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if _, err := r.Auth.Create(ctx, auth); err != nil {
		return nil, fmt.Errorf("create auth: %w", err)
	}
	if _, err := r.Profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if _, err := r.Stats.Create(ctx, stats); err != nil {
		return nil, fmt.Errorf("create stats: %w", err)
	}
	return user, nil
}

// RecordLogin stamps the last-login time of the user's auth record.
func (r *UserRepository) RecordLogin(ctx context.Context, userID string) (*models.UserAuth, error) {
	auths, err := r.Auth.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(auths) == 0 {
		return nil, fmt.Errorf("auth for user %s: %w", userID, ErrNotFound)
	}
	a := auths[0]
	a.LastLoginAt = r.deps.Now()
	return r.Auth.Update(ctx, a)
}

// ProfileFor returns the user's profile.
func (r *UserRepository) ProfileFor(ctx context.Context, userID string) (*models.UserProfile, error) {
	profiles, err := r.Profiles.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profile for user %s: %w", userID, ErrNotFound)
	}
	return profiles[0], nil
}

// StatsFor returns the user's stats, creating an empty record if none exists.
func (r *UserRepository) StatsFor(ctx context.Context, userID string) (*models.UserStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalid)
	}
	all, err := r.Stats.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return all[0], nil
	}
	return r.Stats.Create(ctx, models.NewUserStats(userID))
}

// AddXP grants experience points and recomputes the level.
func (r *UserRepository) AddXP(ctx context.Context, userID string, xp int64) (*models.UserStats, error) {
	stats, err := r.StatsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.AddXP(xp)
	return r.Stats.Save(ctx, stats)
}
