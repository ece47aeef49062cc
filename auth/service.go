// Package auth manages the authenticated session: login and registration
// against the backend, the persisted user identity, and logout.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gomeals.io/market/api"
	"gomeals.io/market/models"
	"gomeals.io/market/models/enum"
	"gomeals.io/market/store"
)

const minPasswordLength = 8

var ErrNotLoggedIn = errors.New("auth: no user logged in")

// RegisterParams is the registration form the backend expects.
type RegisterParams struct {
	Email           string        `json:"email"`
	Password        string        `json:"password"`
	ConfirmPassword string        `json:"confirm_password"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Role            enum.UserRole `json:"role"`
}

func (p RegisterParams) Validate() error {
	if p.Email == "" || p.Password == "" || p.FirstName == "" || p.LastName == "" {
		return errors.New("all fields are required")
	}
	if len(p.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if p.Password != p.ConfirmPassword {
		return errors.New("passwords do not match")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("invalid role: %s", p.Role)
	}
	return nil
}

// sessionResponse is what the backend returns from login and register.
type sessionResponse struct {
	User   models.User      `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, params RegisterParams) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context)
}

var _ Service = (*service)(nil)

type service struct {
	client *api.Client
	store  store.Store
	logger *zap.Logger
}

func NewService(client *api.Client, kv store.Store, logger *zap.Logger) Service {
	return &service{
		client: client,
		store:  kv,
		logger: logger,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp sessionResponse
	if err := s.client.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.saveSession(ctx, &resp); err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("user_id", resp.User.ID), zap.String("role", string(resp.User.Role)))

	return &resp.User, nil
}

func (s *service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var resp sessionResponse
	if err := s.client.Post(ctx, "/auth/register", params, &resp); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	if err := s.saveSession(ctx, &resp); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", resp.User.ID), zap.String("role", string(resp.User.Role)))

	return &resp.User, nil
}

// CurrentUser restores the persisted identity. A corrupt record is cleared
// and treated as not logged in rather than surfaced as a failure.
func (s *service) CurrentUser(ctx context.Context) (*models.User, error) {
	raw, err := s.store.Get(ctx, api.IdentityKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read stored identity: %w", err)
	}

	user := models.NewUser()
	if err = json.Unmarshal(raw, user); err != nil {
		s.logger.Warn("Corrupt stored identity, clearing", zap.Error(err))
		if delErr := s.store.Delete(ctx, api.IdentityKey); delErr != nil {
			s.logger.Warn("Failed to clear corrupt identity", zap.Error(delErr))
		}
		return nil, ErrNotLoggedIn
	}

	return user, nil
}

func (s *service) Logout(ctx context.Context) {
	s.client.ClearSession(ctx)
	s.logger.Info("User logged out")
}

func (s *service) saveSession(ctx context.Context, resp *sessionResponse) error {
	if err := s.client.SaveTokenPair(ctx, &resp.Tokens); err != nil {
		return err
	}

	raw, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err = s.store.Set(ctx, api.IdentityKey, raw); err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}

	return nil
}
