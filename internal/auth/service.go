package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/taskhub/internal/shared"
)

// welcomeTimeout bounds the best-effort welcome enqueue during registration.
const welcomeTimeout = 2 * time.Second

// Notifier receives account lifecycle events. Delivery is best effort.
type Notifier interface {
	Welcome(ctx context.Context, name, email string) error
}

// ServiceConfig tunes the Service.
type ServiceConfig struct {
	BcryptCost int
	Logger     *slog.Logger
	Notifier   Notifier
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *TokenManager
	validator *shared.Validator
	cost      int
	logger    *slog.Logger
	notifier  Notifier
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, cfg ServiceConfig) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		validator: shared.NewValidator(),
		cost:      cost,
		logger:    logger,
		notifier:  cfg.Notifier,
		now:       time.Now,
	}
}

// Register creates an account and issues a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if err := s.validateRegister(&in); err != nil {
		return AuthResult{}, err
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return AuthResult{}, shared.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.logger.Info("new user registered", slog.String("email", user.Email))
	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, welcomeTimeout)
		if err := s.notifier.Welcome(notifyCtx, user.Name, user.Email); err != nil {
			s.logger.Warn("enqueue welcome mail", slog.Any("error", err))
		}
		cancel()
	}
	return AuthResult{Token: token, User: user}, nil
}

// Login validates email/password credentials. Unknown accounts, inactive
// accounts and wrong passwords all fail with shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if err := s.validateLogin(&in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.burnHash(in.Password)
			return AuthResult{}, shared.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthResult{}, shared.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return AuthResult{}, fmt.Errorf("stamp last login: %w", err)
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("user logged in", slog.String("email", user.Email))
	return AuthResult{Token: token, User: *user}, nil
}

// Authenticate resolves a bearer token to an active principal. Role and
// active flag come from the stored record, not from the token.
func (s *Service) Authenticate(ctx context.Context, token string) (shared.Principal, error) {
	if token == "" {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		return shared.Principal{}, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Principal{}, shared.ErrPrincipalInactive
		}
		return shared.Principal{}, fmt.Errorf("server error during authentication: %w", err)
	}
	if !user.IsActive {
		return shared.Principal{}, shared.ErrPrincipalInactive
	}
	return shared.Principal{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// CurrentUser returns the stored record for id.
func (s *Service) CurrentUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrPrincipalInactive
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's name and/or email.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error) {
	changes, err := s.validateProfile(in)
	if err != nil {
		return nil, err
	}
	if changes.Empty() {
		return s.CurrentUser(ctx, id)
	}
	if changes.Email != nil {
		existing, err := s.repo.FindByEmail(ctx, *changes.Email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, shared.ErrDuplicateEmail
		}
	}
	user, err := s.repo.UpdateProfile(ctx, id, changes)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return nil, err
		}
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrPrincipalInactive
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// burnHash spends roughly one bcrypt comparison so unknown emails take as
// long as wrong passwords.
func (s *Service) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskhub-placeholder"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}
