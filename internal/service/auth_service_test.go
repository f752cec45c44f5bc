package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	updatePasswordErr   error
	lastLoginUpdated    bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

type auditRepoStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (a *auditRepoStub) Create(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRepoStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

var testAuthConfig = AuthConfig{
	AccessTokenSecret:  "secret",
	AccessTokenExpiry:  time.Hour,
	RefreshTokenExpiry: 24 * time.Hour,
	Issuer:             "unibody-docs",
}

func newAuthFixture(repo *mockAuthRepo) (*AuthService, *auditRepoStub) {
	audits := &auditRepoStub{}
	svc := NewAuthService(repo, NewAuditService(audits, nil, nil, nil), validator.New(), zap.NewNop(), testAuthConfig)
	return svc, audits
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	unit := "unit-a"
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleAdmin, UnitID: &unit}}
	svc, audits := newAuthFixture(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, &unit, res.User.UnitID)
	assert.True(t, repo.lastLoginUpdated)
	assert.Len(t, repo.refreshTokens, 1)
	assert.Equal(t, []string{models.AuditActionLogin}, audits.actions())
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "user@example.com", PasswordHash: hashed(t, "password"), Active: false}}
	svc, _ := newAuthFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.findByEmailErr = errors.New("db down")
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash", Active: true, Role: models.RoleAdmin}
	repo := &mockAuthRepo{userByID: user, refreshTokens: make(map[string]*models.RefreshToken)}
	repo.refreshTokens["token"] = &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	svc, _ := newAuthFixture(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogoutOwnTokenOnly(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"mine":   {ID: "rt1", UserID: "u1", Token: "mine", ExpiresAt: time.Now().Add(time.Hour)},
		"theirs": {ID: "rt2", UserID: "u2", Token: "theirs", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc, audits := newAuthFixture(repo)
	caller := &models.Principal{UserID: "u1", Role: models.RoleSubAdmin, Active: true}

	err := svc.Logout(context.Background(), caller, "theirs", models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Logout(context.Background(), caller, "mine", models.RequestMeta{IP: "10.0.0.1"}))
	assert.True(t, repo.refreshTokens["mine"].Revoked)
	assert.False(t, repo.refreshTokens["theirs"].Revoked)
	assert.Equal(t, []string{models.AuditActionLogout}, audits.actions())
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashed(t, "old")
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", PasswordHash: oldHash, Active: true}}
	svc, _ := newAuthFixture(repo)
	caller := &models.Principal{UserID: "u1", Role: models.RoleAdmin, Active: true}

	err := svc.ChangePassword(context.Background(), caller, models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpassword"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.ChangePassword(context.Background(), caller, models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"}))
	assert.NotEqual(t, oldHash, repo.userByEmail.PasswordHash)
}

func TestAuthenticateLoadsCurrentUser(t *testing.T) {
	unit := "unit-b"
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin, Active: true}
	repo := &mockAuthRepo{userByID: user}
	svc, _ := newAuthFixture(repo)

	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	// membership changed after the token was issued
	user.UnitID = &unit
	p, err := svc.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, &unit, p.UnitID)
	assert.True(t, p.Active)
}

func TestAuthenticateErrorCodes(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin, Active: true}
	repo := &mockAuthRepo{userByID: user}
	svc, _ := newAuthFixture(repo)
	valid, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testAuthConfig.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	expiredSvc, _ := newAuthFixture(repo)
	expiredSvc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
	expired, _, err := expiredSvc.generateAccessToken(user)
	require.NoError(t, err)

	cases := []struct {
		name   string
		bearer string
		want   *appErrors.Error
	}{
		{"missing", "", appErrors.ErrTokenMissing},
		{"bare scheme", "Bearer ", appErrors.ErrTokenMissing},
		{"malformed", "Bearer not.a.jwt", appErrors.ErrTokenMalformed},
		{"bad signature", "Bearer " + forged, appErrors.ErrTokenSignatureInvalid},
		{"expired", "Bearer " + expired, appErrors.ErrTokenExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.bearer)
			require.Error(t, err)
			assert.Equal(t, tc.want.Code, appErrors.FromError(err).Code)
		})
	}

	t.Run("unknown subject", func(t *testing.T) {
		svc, _ := newAuthFixture(&mockAuthRepo{})
		_, err := svc.Authenticate(context.Background(), valid)
		assert.ErrorIs(t, err, appErrors.ErrUnknownSubject)
	})

	t.Run("inactive", func(t *testing.T) {
		inactive := *user
		inactive.Active = false
		svc, _ := newAuthFixture(&mockAuthRepo{userByID: &inactive})
		_, err := svc.Authenticate(context.Background(), valid)
		assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
	})
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthRepo{userByID: &models.User{ID: "u1", Email: "me@example.com", FullName: "Me", Role: models.RoleSubAdmin, Active: true}}
	svc, _ := newAuthFixture(repo)

	info, err := svc.Me(context.Background(), &models.Principal{UserID: "u1", Active: true, Role: models.RoleSubAdmin})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", info.Email)

	_, err = svc.Me(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
