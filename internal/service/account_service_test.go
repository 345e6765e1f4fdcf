package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type mockAccountRepo struct {
	users     map[string]*models.User
	revoked   []string
	auditLogs []*models.AuditLog
	filters   []models.UserFilter
}

func (m *mockAccountRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.filters = append(m.filters, filter)
	var users []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.AcademyID != "" && u.Academy() != filter.AcademyID {
			continue
		}
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, len(users), nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAccountRepo) FindInAcademy(ctx context.Context, academyID, id string, role models.UserRole) (*models.User, error) {
	u, ok := m.users[id]
	if !ok || u.Academy() != academyID || u.Role != role {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *mockAccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = active
	return nil
}

func (m *mockAccountRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockAccountRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAccountFixture() (*mockAccountRepo, *AccountService) {
	d1, d2 := "d1", "d2"
	repo := &mockAccountRepo{users: map[string]*models.User{
		"d1": {ID: "d1", Role: models.RoleDirector, AcademyID: &d1, Active: true},
		"d2": {ID: "d2", Role: models.RoleDirector, AcademyID: &d2, Active: true},
		"t1": {ID: "t1", Role: models.RoleTeacher, AcademyID: &d1, Active: true},
		"t2": {ID: "t2", Role: models.RoleTeacher, AcademyID: &d1, Active: true},
		"t9": {ID: "t9", Role: models.RoleTeacher, AcademyID: &d2, Active: true},
	}}
	return repo, NewAccountService(repo, nil)
}

var (
	directorD1 = &models.Principal{UserID: "d1", Role: models.RoleDirector, AcademyID: "d1"}
	adminUser  = &models.Principal{UserID: "a1", Role: models.RoleAdmin}
)

func TestListTeachersScopedToAcademy(t *testing.T) {
	repo, svc := newAccountFixture()

	teachers, page, err := svc.ListTeachers(context.Background(), directorD1, "", 1, 20)
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "t1", teachers[0].ID)
	assert.Equal(t, "t2", teachers[1].ID)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "d1", repo.filters[0].AcademyID)
}

func TestGetTeacherFromOtherAcademyIsNotFound(t *testing.T) {
	_, svc := newAccountFixture()

	_, err := svc.GetTeacher(context.Background(), directorD1, "t9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.GetTeacher(context.Background(), directorD1, "d2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeactivateTeacherRevokesSessions(t *testing.T) {
	repo, svc := newAccountFixture()

	require.NoError(t, svc.DeactivateTeacher(context.Background(), directorD1, "t1"))
	assert.False(t, repo.users["t1"].Active)
	assert.Equal(t, []string{"t1"}, repo.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionAccountStatus, repo.auditLogs[0].Action)

	err := svc.DeactivateTeacher(context.Background(), directorD1, "t9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.True(t, repo.users["t9"].Active)
}

func TestTeacherCannotManageAccounts(t *testing.T) {
	_, svc := newAccountFixture()
	teacher := &models.Principal{UserID: "t1", Role: models.RoleTeacher, AcademyID: "d1"}

	_, _, err := svc.ListTeachers(context.Background(), teacher, "", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.ListDirectors(context.Background(), directorD1, "", nil, 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAdminSetsDirectorStatus(t *testing.T) {
	repo, svc := newAccountFixture()
	ctx := context.Background()

	directors, _, err := svc.ListDirectors(ctx, adminUser, "", nil, 1, 20)
	require.NoError(t, err)
	assert.Len(t, directors, 2)

	director, err := svc.SetDirectorStatus(ctx, adminUser, "d2", false)
	require.NoError(t, err)
	assert.False(t, director.Active)
	assert.False(t, repo.users["d2"].Active)
	assert.Equal(t, []string{"d2"}, repo.revoked)

	_, err = svc.SetDirectorStatus(ctx, adminUser, "t1", false)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.SetDirectorStatus(ctx, adminUser, "d2", true)
	require.NoError(t, err)
	assert.True(t, repo.users["d2"].Active)
	assert.Len(t, repo.revoked, 1)
}
