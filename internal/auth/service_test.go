package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snake-arena/backend/internal/domain"
)

// fakeUserStore is an in-memory UserStore
type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]domain.User // username -> user
	hashes map[string]string      // email -> credential hash
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[string]domain.User),
		hashes: make(map[string]string),
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user domain.User, hash string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	if _, ok := f.users[user.Username]; ok {
		return domain.User{}, domain.ErrUsernameTaken
	}
	f.users[user.Username] = user
	f.hashes[user.Email] = hash
	return user, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeUserStore) UserByUsername(_ context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeUserStore) CredentialHash(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.hashes[strings.ToLower(email)]; ok {
		return h, nil
	}
	return "", domain.ErrUserNotFound
}

func newTestService(t *testing.T) (*Service, *fakeUserStore) {
	t.Helper()
	store := newFakeUserStore()
	tokens := NewTokenIssuer("test-secret", 30*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, tokens, 4, logger), store
}

func TestSignupIssuesDecodableToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, domain.AuthCredentials{
		Email:    "u1@e.com",
		Password: "p",
		Username: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.Username)
	assert.Equal(t, "u1@e.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)

	// Token decodes back to the same username
	tokens := NewTokenIssuer("test-secret", 30*time.Minute)
	sub, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	// And a subsequent login with the same credentials succeeds
	login, err := svc.Login(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestSignupRequiresUsername(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), domain.AuthCredentials{
		Email:    "u1@e.com",
		Password: "p",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameRequired)
}

func TestSignupRejectsMalformedEmail(t *testing.T) {
	svc, _ := newTestService(t)

	for _, email := range []string{"", "no-at-sign", "@e.com", "u1@", "u1@nodot"} {
		_, err := svc.Signup(context.Background(), domain.AuthCredentials{
			Email:    email,
			Password: "p",
			Username: "u1",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, "email %q", email)
	}
}

func TestSignupDuplicateDoesNotOverwrite(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Signup(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "p", Username: "u1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "other", Username: "u2"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.Signup(ctx, domain.AuthCredentials{Email: "u2@e.com", Password: "other", Username: "u1"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	// Original record unchanged
	stored, err := store.UserByUsername(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, stored.ID)

	login, err := svc.Login(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, login.User.ID)
}

func TestLoginDoesNotLeakWhichPartFailed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "p", Username: "u1"})
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, domain.AuthCredentials{Email: "nobody@e.com", Password: "p"})
	_, wrongErr := svc.Login(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "wrong"})

	assert.ErrorIs(t, unknownErr, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, domain.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, domain.AuthCredentials{Email: "u1@e.com", Password: "p", Username: "u1"})
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.Username)

	_, err = svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
