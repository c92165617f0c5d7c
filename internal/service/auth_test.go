package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/okhomin/contacts-service/internal/hash"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/token"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Contact{}))
	return db
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	return &AuthService{
		Users:  repository.NewUserRepo(initTestDB(t)),
		Hasher: hash.New(bcrypt.MinCost),
		Codec:  token.NewCodec([]byte("test-secret"), 15*time.Minute, 7*24*time.Hour, 0),
	}
}

func uniqueEmail() string {
	return "u_" + uuid.NewString() + "@example.com"
}

func TestAuthService_Signup_SuccessAndConflict(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	user, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Nil(t, user.RefreshToken)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	dup, err := svc.Signup(ctx, email, "secret2", nil)
	require.Error(t, err)
	assert.Nil(t, dup)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_Login_UnknownAndWrongPasswordFailAlike(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Login(ctx, email, "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)

	_, err = svc.Login(ctx, email, "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_IssuesPairAndStoresRefresh(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	accessClaims, err := svc.Codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.ScopeAccess, accessClaims.Scope)
	assert.Equal(t, email, accessClaims.Subject)

	refreshClaims, err := svc.Codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, token.ScopeRefresh, refreshClaims.Scope)

	user, err := svc.Users.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, user.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *user.RefreshToken)
}

func TestAuthService_SecondLogin_InvalidatesFirstRefresh(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)

	first, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalidated)
}

func TestAuthService_Refresh_RotatesAndDetectsReplay(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)
	login, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// Replaying the superseded token terminates the session.
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalidated)

	user, err := svc.Users.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, user.RefreshToken)

	// The freshly rotated token died with the session.
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionInvalidated)
}

func TestAuthService_Refresh_RejectsAccessScope(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)
	pair, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAuthService_Refresh_RejectsGarbageAndUnknownSubject(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "not-a-valid-jwt")
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	ghost, err := svc.Codec.Encode(uniqueEmail(), token.ScopeRefresh)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAuthService_Refresh_ExpiredRefreshFails(t *testing.T) {
	t.Parallel()

	db := initTestDB(t)
	expiredCodec := token.NewCodec([]byte("test-secret"), -time.Minute, -time.Minute, 0)
	svc := &AuthService{
		Users:  repository.NewUserRepo(db),
		Hasher: hash.New(bcrypt.MinCost),
		Codec:  expiredCodec,
	}
	ctx := context.Background()
	email := uniqueEmail()

	_, err := svc.Signup(ctx, email, "secret1", nil)
	require.NoError(t, err)
	pair, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
