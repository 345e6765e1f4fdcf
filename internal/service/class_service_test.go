package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
)

type stubClassRepo struct {
	classes   map[string]*models.ClassDetail
	listCalls int
	next      int
}

func (s *stubClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	s.listCalls++
	var allowed map[string]bool
	if filter.ClassIDs != nil {
		allowed = map[string]bool{}
		for _, id := range filter.ClassIDs {
			allowed[id] = true
		}
	}
	out := []models.ClassDetail{}
	for _, c := range s.classes {
		if c.AcademyID != filter.AcademyID || (allowed != nil && !allowed[c.ID]) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *stubClassRepo) FindByID(ctx context.Context, academyID, id string) (*models.ClassDetail, error) {
	c, ok := s.classes[id]
	if !ok || c.AcademyID != academyID {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (s *stubClassRepo) Create(ctx context.Context, class *models.Class) error {
	s.next++
	class.ID = "new-class"
	s.classes[class.ID] = &models.ClassDetail{Class: *class}
	return nil
}

func (s *stubClassRepo) Update(ctx context.Context, class *models.Class) error {
	if _, ok := s.classes[class.ID]; !ok {
		return sql.ErrNoRows
	}
	s.classes[class.ID] = &models.ClassDetail{Class: *class}
	return nil
}

func (s *stubClassRepo) Delete(ctx context.Context, academyID, id string) error {
	c, ok := s.classes[id]
	if !ok || c.AcademyID != academyID {
		return sql.ErrNoRows
	}
	delete(s.classes, id)
	return nil
}

const leadTeacherID = "5d2b8c1e-7a4f-4e39-8c6b-2f1a9e0d7b34"

func newClassFixture() (*academyFixture, *stubClassRepo, *ClassService) {
	f := newAcademyFixture()
	d1 := "d1"
	f.users.users[leadTeacherID] = &models.User{ID: leadTeacherID, Role: models.RoleTeacher, AcademyID: &d1}
	repo := &stubClassRepo{classes: map[string]*models.ClassDetail{}}
	for id, c := range f.classes.classes {
		copied := *c
		repo.classes[id] = &copied
	}
	return f, repo, NewClassService(repo, f.users, f.svc, nil, nil)
}

func classIDs(classes []models.ClassDetail) []string {
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestClassListFollowsAccessScope(t *testing.T) {
	f, repo, svc := newClassFixture()
	ctx := context.Background()

	classes, _, err := svc.List(ctx, f.teacher, "", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, classes)
	assert.Zero(t, repo.listCalls)

	_, err = f.svc.AssignClass(ctx, f.director, "t1", "c2")
	require.NoError(t, err)
	classes, _, err = svc.List(ctx, f.teacher, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, classIDs(classes))

	classes, page, err := svc.List(ctx, f.director, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, classIDs(classes))
	assert.Equal(t, 2, page.TotalCount)
}

func TestClassGetForbiddenOutsideAssignment(t *testing.T) {
	f, _, svc := newClassFixture()

	_, err := svc.Get(context.Background(), f.teacher, "c1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(context.Background(), f.director, "c9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestClassCreateWithLeadTeacher(t *testing.T) {
	f, _, svc := newClassFixture()
	teacherID := leadTeacherID

	class, err := svc.Create(context.Background(), f.director, dto.ClassRequest{Name: " Math A ", TeacherID: &teacherID})
	require.NoError(t, err)
	assert.Equal(t, "Math A", class.Name)
	assert.Equal(t, "d1", class.AcademyID)
	require.NotNil(t, class.TeacherID)
	assert.Equal(t, leadTeacherID, *class.TeacherID)
}

func TestClassCreateRejectsForeignTeacher(t *testing.T) {
	f, repo, svc := newClassFixture()
	d2 := "d2"
	foreign := "9e4a1c3b-2d7f-4b58-a6e1-3c8f0b2d5a97"
	f.users.users[foreign] = &models.User{ID: foreign, Role: models.RoleTeacher, AcademyID: &d2}

	_, err := svc.Create(context.Background(), f.director, dto.ClassRequest{Name: "Science", TeacherID: &foreign})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Zero(t, repo.next)

	_, err = svc.Create(context.Background(), f.teacher, dto.ClassRequest{Name: "Science"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestClassUpdateAndDelete(t *testing.T) {
	f, _, svc := newClassFixture()
	ctx := context.Background()

	updated, err := svc.Update(ctx, f.director, "c1", dto.ClassRequest{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Nil(t, updated.TeacherID)

	_, err = svc.Update(ctx, f.director, "c9", dto.ClassRequest{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, f.director, "c1"))
	assert.ErrorIs(t, svc.Delete(ctx, f.director, "c1"), appErrors.ErrNotFound)
}
