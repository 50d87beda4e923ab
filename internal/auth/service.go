package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snake-arena/backend/internal/domain"
)

// UserStore is the slice of the repository the auth service needs
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User, credentialHash string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	CredentialHash(ctx context.Context, email string) (string, error)
}

// Service implements signup, login and token resolution
type Service struct {
	store      UserStore
	tokens     *TokenIssuer
	bcryptCost int
	logger     *slog.Logger
}

// NewService creates a new auth service
func NewService(store UserStore, tokens *TokenIssuer, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Signup registers a new user and returns it with a fresh token. Validation
// runs in two stages: structural (well-formed email, non-empty password),
// then the business rule that signup requires a username even though the
// credentials schema leaves it optional.
func (s *Service) Signup(ctx context.Context, creds domain.AuthCredentials) (domain.AuthResponse, error) {
	if err := validateCredentials(creds); err != nil {
		return domain.AuthResponse{}, err
	}
	if strings.TrimSpace(creds.Username) == "" {
		return domain.AuthResponse{}, domain.ErrUsernameRequired
	}

	hash, err := HashPassword(creds.Password, s.bcryptCost)
	if err != nil {
		return domain.AuthResponse{}, fmt.Errorf("hashing password: %w", err)
	}

	user := domain.User{
		ID:        uuid.New().String(),
		Username:  creds.Username,
		Email:     strings.ToLower(strings.TrimSpace(creds.Email)),
		CreatedAt: time.Now().UTC(),
	}
	stored, err := s.store.CreateUser(ctx, user, hash)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	token, err := s.tokens.Issue(stored.Username)
	if err != nil {
		return domain.AuthResponse{}, err
	}

	s.logger.Info("user registered", "username", stored.Username)
	return domain.AuthResponse{User: stored, Token: token}, nil
}

// Login verifies credentials and returns the user with a fresh token. An
// unknown email and a wrong password produce the identical error so the
// response cannot be used for account enumeration.
func (s *Service) Login(ctx context.Context, creds domain.AuthCredentials) (domain.AuthResponse, error) {
	if err := validateCredentials(creds); err != nil {
		return domain.AuthResponse{}, err
	}

	user, err := s.store.UserByEmail(ctx, creds.Email)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.AuthResponse{}, domain.ErrInvalidCredentials
		}
		return domain.AuthResponse{}, err
	}

	hash, err := s.store.CredentialHash(ctx, creds.Email)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.AuthResponse{}, domain.ErrInvalidCredentials
		}
		return domain.AuthResponse{}, err
	}
	if !VerifyPassword(hash, creds.Password) {
		return domain.AuthResponse{}, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	return domain.AuthResponse{User: user, Token: token}, nil
}

// CurrentUser resolves a bearer token to its user record
func (s *Service) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.User{}, domain.ErrInvalidToken
		}
		return domain.User{}, err
	}
	return user, nil
}

// validateCredentials is the structural stage: email shape and a password.
func validateCredentials(creds domain.AuthCredentials) error {
	email := strings.TrimSpace(creds.Email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("%w: malformed email", domain.ErrInvalidRequest)
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: password required", domain.ErrInvalidRequest)
	}
	return nil
}
