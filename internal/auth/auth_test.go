package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

type memUsers struct {
	byEmail map[string]*models.User
	nextID  int64
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return apperr.Conflict("email taken")
	}
	m.nextID++
	u.ID = m.nextID
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("user", email)
	}
	return u, nil
}

func newAuthenticator() *PasswordAuthenticator {
	a := NewPasswordAuthenticator(&memUsers{byEmail: map[string]*models.User{}}, bcrypt.MinCost)
	return a
}

func TestSignIn_CreatesOnFirstUse(t *testing.T) {
	a := newAuthenticator()
	ctx := context.Background()

	user, created, err := a.SignIn(ctx, " Alice@Example.com ", "", "correct horse")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Name)

	again, created, err := a.SignIn(ctx, "alice@example.com", "", "correct horse")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = a.SignIn(ctx, "alice@example.com", "", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "ALICE@example.com", "correct horse")
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	a := newAuthenticator()
	ctx := context.Background()

	_, err := a.Authenticate(ctx, "carol@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = a.SignIn(ctx, "carol@example.com", "Carol", "correct horse")
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "carol@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestSignIn_WeakPassword(t *testing.T) {
	_, _, err := newAuthenticator().SignIn(context.Background(), "bob@example.com", "Bob", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.Generate(&models.User{ID: 42, Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	_, err = NewJWTManager("other", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager("secret", -time.Minute)
	token, err = expired.Generate(&models.User{ID: 42})
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLinkSigner_PayLink(t *testing.T) {
	s := NewLinkSigner("secret", time.Hour)
	token, err := s.SignPayLink(5, 2, decimal.RequireFromString("30.10"))
	require.NoError(t, err)

	claims, err := s.VerifyPayLink(token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.HolderID)
	assert.Equal(t, int64(2), claims.ReceiverID)
	assert.True(t, claims.Amount.Equal(decimal.RequireFromString("30.1")))

	// A pay link is not a reminder link.
	_, err = s.VerifyReminderLink(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Tampering with the payload breaks the signature.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "AA"
	_, err = s.VerifyPayLink(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLinkSigner_ReminderLink(t *testing.T) {
	s := NewLinkSigner("secret", time.Hour)
	token, err := s.SignReminderLink("r-1")
	require.NoError(t, err)

	claims, err := s.VerifyReminderLink(token)
	require.NoError(t, err)
	assert.Equal(t, "r-1", claims.ReminderID)

	stale, err := NewLinkSigner("secret", -time.Second).SignReminderLink("r-1")
	require.NoError(t, err)
	_, err = s.VerifyReminderLink(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionTokenIsNotALink(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.Generate(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewLinkSigner("secret", time.Hour).VerifyPayLink(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// An unsigned token is rejected outright.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"aud": "pay"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewLinkSigner("secret", time.Hour).VerifyPayLink(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
