package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/unibody-docs-api/internal/dto"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[string]*models.User
	listErr     error
	lastFilter  models.UserFilter
	deactivated []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	users := make([]models.User, 0)
	for _, u := range m.users {
		if filter.UnitID != nil && (u.UnitID == nil || *u.UnitID != *filter.UnitID) {
			continue
		}
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := m.users[user.ID]; exists {
		return errors.New("duplicate id")
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = false
	m.deactivated = append(m.deactivated, id)
	return nil
}

func seededUsers() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{
		"root":    {ID: "root", Email: "root@uni.test", Role: models.RoleSuperAdmin, Active: true},
		"admin-a": {ID: "admin-a", Email: "admin-a@uni.test", Role: models.RoleAdmin, Active: true, UnitID: ptr("unit-a")},
		"sub-a":   {ID: "sub-a", Email: "sub-a@uni.test", Role: models.RoleSubAdmin, Active: true, UnitID: ptr("unit-a")},
		"sub-b":   {ID: "sub-b", Email: "sub-b@uni.test", Role: models.RoleSubAdmin, Active: true, UnitID: ptr("unit-b")},
	}}
}

func newUserFixture() (*UserService, *mockUserRepo, *auditRepoStub) {
	repo := seededUsers()
	audits := &auditRepoStub{}
	svc := NewUserService(repo, unitLookupStub{"unit-a": true, "unit-b": true}, NewAuditService(audits, nil, nil, nil), validator.New(), zap.NewNop())
	return svc, repo, audits
}

func TestUserListScopedToUnit(t *testing.T) {
	svc, repo, _ := newUserFixture()

	users, meta, err := svc.List(context.Background(), adminA, dto.UserListQuery{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "unit-a", *repo.lastFilter.UnitID)
	assert.Equal(t, 2, meta.TotalItems)

	users, _, err = svc.List(context.Background(), adminA, dto.UserListQuery{UnitID: "unit-b"})
	require.NoError(t, err)
	assert.Empty(t, users)

	users, _, err = svc.List(context.Background(), superAdmin, dto.UserListQuery{})
	require.NoError(t, err)
	assert.Len(t, users, 4)

	_, _, err = svc.List(context.Background(), nil, dto.UserListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, _, err = svc.List(context.Background(), superAdmin, dto.UserListQuery{Role: "guest"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserListStoreFailure(t *testing.T) {
	svc, repo, _ := newUserFixture()
	repo.listErr = errors.New("db down")

	_, _, err := svc.List(context.Background(), superAdmin, dto.UserListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestUserGetHidesOtherUnits(t *testing.T) {
	svc, _, _ := newUserFixture()

	user, err := svc.Get(context.Background(), adminA, "sub-a")
	require.NoError(t, err)
	assert.Equal(t, "sub-a@uni.test", user.Email)

	_, err = svc.Get(context.Background(), adminA, "sub-b")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Get(context.Background(), superAdmin, "sub-b")
	assert.NoError(t, err)
}

func TestUserCreateBySuperAdmin(t *testing.T) {
	svc, repo, audits := newUserFixture()

	user, err := svc.Create(context.Background(), superAdmin, dto.CreateUserRequest{
		Email:    "New.Admin@Uni.test",
		FullName: "New Admin",
		Role:     "admin",
		UnitID:   ptr("unit-b"),
		Password: "password123",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "new.admin@uni.test", user.Email)
	assert.True(t, user.Active)
	assert.Equal(t, "unit-b", *user.UnitID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("password123")))
	assert.Equal(t, []string{models.AuditActionUserCreate}, audits.actions())

	_, err = svc.Create(context.Background(), superAdmin, dto.CreateUserRequest{
		Email: "admin-a@uni.test", FullName: "Dup", Role: "sub_admin", Password: "password123",
	}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), superAdmin, dto.CreateUserRequest{
		Email: "ghost@uni.test", FullName: "Ghost", Role: "sub_admin", UnitID: ptr("unit-x"), Password: "password123",
	}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserCreateByAdminLimitedToOwnUnitSubAdmins(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Create(ctx, adminA, dto.CreateUserRequest{
		Email: "clerk@uni.test", FullName: "Clerk", Role: "sub_admin", Password: "password123",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "unit-a", *user.UnitID)

	_, err = svc.Create(ctx, adminA, dto.CreateUserRequest{
		Email: "boss@uni.test", FullName: "Boss", Role: "admin", Password: "password123",
	}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, adminA, dto.CreateUserRequest{
		Email: "elsewhere@uni.test", FullName: "Elsewhere", Role: "sub_admin", UnitID: ptr("unit-b"), Password: "password123",
	}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(ctx, subA, dto.CreateUserRequest{
		Email: "peer@uni.test", FullName: "Peer", Role: "sub_admin", Password: "password123",
	}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUserUpdateRules(t *testing.T) {
	svc, repo, _ := newUserFixture()
	ctx := context.Background()

	updated, err := svc.Update(ctx, adminA, "sub-a", dto.UpdateUserRequest{FullName: ptr("Renamed")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)

	_, err = svc.Update(ctx, adminA, "sub-a", dto.UpdateUserRequest{Role: ptr("admin")}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, adminA, "sub-a", dto.UpdateUserRequest{UnitID: ptr("unit-b")}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, adminA, "sub-b", dto.UpdateUserRequest{FullName: ptr("Nope")}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	moved, err := svc.Update(ctx, superAdmin, "sub-a", dto.UpdateUserRequest{UnitID: ptr("unit-b"), Role: ptr("admin")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "unit-b", *moved.UnitID)
	assert.Equal(t, models.RoleAdmin, repo.users["sub-a"].Role)

	cleared, err := svc.Update(ctx, superAdmin, "sub-a", dto.UpdateUserRequest{UnitID: ptr("")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, cleared.UnitID)

	_, err = svc.Update(ctx, superAdmin, "root", dto.UpdateUserRequest{Active: ptr(false)}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUserDeactivate(t *testing.T) {
	svc, repo, audits := newUserFixture()
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, adminA, "sub-a", models.RequestMeta{}))
	assert.False(t, repo.users["sub-a"].Active)
	assert.Equal(t, []string{models.AuditActionUserDeactivate}, audits.actions())

	assert.ErrorIs(t, svc.Deactivate(ctx, adminA, "sub-b", models.RequestMeta{}), appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Deactivate(ctx, superAdmin, "root", models.RequestMeta{}), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Deactivate(ctx, superAdmin, "missing", models.RequestMeta{}), appErrors.ErrNotFound)
}
