package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/defect-tracker/database"
	"github.com/defect-tracker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{UserName: email, Email: email, PasswordHash: "x"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), &u))
	return u
}

func seedProject(t *testing.T, db *gorm.DB, name string) models.Project {
	t.Helper()
	p := models.Project{Name: name, StartDate: datatypes.Date(time.Now())}
	require.NoError(t, NewProjectRepository(db).Create(context.Background(), &p))
	return p
}

func seedDefect(t *testing.T, db *gorm.DB, d models.Defect) models.Defect {
	t.Helper()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = models.DefectStatusNew
	}
	if d.Priority == "" {
		d.Priority = models.DefectPriorityMedium
	}
	require.NoError(t, NewDefectRepository(db).Create(context.Background(), &d))
	return d
}

func ids(defects []models.Defect) []uint {
	out := make([]uint, 0, len(defects))
	for _, d := range defects {
		out = append(out, d.ID)
	}
	return out
}

func TestDefectRepository_FindComposesFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDefectRepository(db)

	alpha := seedProject(t, db, "Alpha")
	beta := seedProject(t, db, "Beta")

	d1 := seedDefect(t, db, models.Defect{Title: "Login button broken", ProjectID: alpha.ID, Priority: models.DefectPriorityHigh})
	d2 := seedDefect(t, db, models.Defect{Title: "Typo", Description: "the LOGIN page says lgoin", ProjectID: beta.ID, Status: models.DefectStatusClosed})
	d3 := seedDefect(t, db, models.Defect{Title: "Crash on save", ProjectID: alpha.ID, Status: models.DefectStatusClosed, Priority: models.DefectPriorityHigh})
	d4 := seedDefect(t, db, models.Defect{Title: "100% CPU", ProjectID: beta.ID, Priority: models.DefectPriorityLow})

	tests := []struct {
		name     string
		criteria DefectCriteria
		want     []uint
	}{
		{name: "no filter returns all in insertion order", criteria: DefectCriteria{}, want: []uint{d1.ID, d2.ID, d3.ID, d4.ID}},
		{name: "search matches title or description case-insensitively", criteria: DefectCriteria{Search: "login"}, want: []uint{d1.ID, d2.ID}},
		{name: "search treats percent literally", criteria: DefectCriteria{Search: "100%"}, want: []uint{d4.ID}},
		{name: "underscore is not a wildcard", criteria: DefectCriteria{Search: "a_e"}, want: []uint{}},
		{name: "status", criteria: DefectCriteria{Status: models.DefectStatusClosed}, want: []uint{d2.ID, d3.ID}},
		{name: "priority", criteria: DefectCriteria{Priority: models.DefectPriorityHigh}, want: []uint{d1.ID, d3.ID}},
		{name: "project", criteria: DefectCriteria{ProjectID: beta.ID}, want: []uint{d2.ID, d4.ID}},
		{
			name:     "all filters intersect",
			criteria: DefectCriteria{Status: models.DefectStatusClosed, Priority: models.DefectPriorityHigh, ProjectID: alpha.ID},
			want:     []uint{d3.ID},
		},
		{name: "disjoint filters yield nothing", criteria: DefectCriteria{Search: "typo", ProjectID: alpha.ID}, want: []uint{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Find(ctx, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	all, err := repo.Find(ctx, DefectCriteria{})
	require.NoError(t, err)
	require.NotNil(t, all[0].Project)
	assert.Equal(t, "Alpha", all[0].Project.Name)
}

func TestDefectRepository_UpdateReportsMissingRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDefectRepository(db)
	p := seedProject(t, db, "P")
	d := seedDefect(t, db, models.Defect{Title: "old", ProjectID: p.ID})

	d.Title = "new"
	n, err := repo.Update(ctx, &d)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	missing := models.Defect{ID: 999, Title: "x", ProjectID: p.ID, Status: models.DefectStatusNew, Priority: models.DefectPriorityLow}
	n, err = repo.Update(ctx, &missing)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = repo.UpdateStatus(ctx, 999, models.DefectStatusClosed)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestDefectRepository_DeleteRemovesChildren(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewDefectRepository(db)
	comments := NewCommentRepository(db)
	attachments := NewAttachmentRepository(db)

	u := seedUser(t, db, "qa@example.com")
	p := seedProject(t, db, "P")
	d := seedDefect(t, db, models.Defect{Title: "bug", ProjectID: p.ID})
	keep := seedDefect(t, db, models.Defect{Title: "other", ProjectID: p.ID})

	c := models.DefectComment{Text: "see log", DefectID: d.ID, AuthorID: u.ID, CreatedAt: time.Now()}
	require.NoError(t, comments.Create(ctx, &c))
	require.NoError(t, attachments.CreateDefectAttachment(ctx, &models.DefectAttachment{
		FileName: "a_x.png", OriginalFileName: "x.png", FilePath: "uploads/defects/a_x.png", ContentType: "image/png",
		UploadedAt: time.Now(), DefectID: d.ID, UploadedByID: u.ID,
	}))
	require.NoError(t, attachments.CreateCommentAttachment(ctx, &models.CommentAttachment{
		FileName: "b_y.log", OriginalFileName: "y.log", FilePath: "uploads/comments/b_y.log", ContentType: "text/plain",
		UploadedAt: time.Now(), CommentID: c.ID, UploadedByID: u.ID,
	}))

	paths, err := attachments.FilePathsForDefect(ctx, d.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"uploads/defects/a_x.png", "uploads/comments/b_y.log"}, paths)

	n, err := repo.Delete(ctx, d.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var count int64
	require.NoError(t, db.Model(&models.DefectComment{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.CommentAttachment{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.DefectAttachment{}).Count(&count).Error)
	assert.Zero(t, count)

	ok, err := repo.Exists(ctx, keep.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttachmentRepository_CommentAttachmentScopedToDefect(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	u := seedUser(t, db, "dev@example.com")
	p := seedProject(t, db, "P")
	d1 := seedDefect(t, db, models.Defect{Title: "one", ProjectID: p.ID})
	d2 := seedDefect(t, db, models.Defect{Title: "two", ProjectID: p.ID})

	c := models.DefectComment{Text: "hi", DefectID: d1.ID, AuthorID: u.ID, CreatedAt: time.Now()}
	require.NoError(t, NewCommentRepository(db).Create(ctx, &c))
	a := models.CommentAttachment{
		FileName: "f", OriginalFileName: "f", FilePath: "uploads/comments/f", ContentType: "text/plain",
		UploadedAt: time.Now(), CommentID: c.ID, UploadedByID: u.ID,
	}
	repo := NewAttachmentRepository(db)
	require.NoError(t, repo.CreateCommentAttachment(ctx, &a))

	got, err := repo.FindCommentAttachment(ctx, d1.ID, c.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.FilePath, got.FilePath)

	_, err = repo.FindCommentAttachment(ctx, d2.ID, c.ID, a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_RolesLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	roles := NewRoleRepository(db)

	for _, name := range []string{"Manager", "Engineer", "Viewer"} {
		require.NoError(t, roles.Create(ctx, &models.Role{Name: name}))
	}

	u := seedUser(t, db, "Mixed.Case@Example.com")
	found, err := users.FindByEmail(ctx, "mixed.case@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	taken, err := users.EmailTaken(ctx, "MIXED.CASE@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = users.EmailTaken(ctx, "mixed.case@example.com", u.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	mgrEng, err := roles.FindByNames(ctx, []string{"manager", "ENGINEER"})
	require.NoError(t, err)
	require.Len(t, mgrEng, 2)
	require.NoError(t, users.AddRoles(ctx, &found, mgrEng))

	viewer, err := roles.FindByNames(ctx, []string{"Viewer"})
	require.NoError(t, err)
	require.NoError(t, users.ReplaceRoles(ctx, &found, viewer))

	reloaded, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Viewer"}, reloaded.RoleNames())

	counts, err := roles.FindAllWithCounts(ctx)
	require.NoError(t, err)
	byName := map[string]int64{}
	for _, rc := range counts {
		byName[rc.Name] = rc.UserCount
	}
	assert.Equal(t, map[string]int64{"Engineer": 0, "Manager": 0, "Viewer": 1}, byName)

	require.NoError(t, users.Delete(ctx, &reloaded))
	n, err := roles.CountUsers(ctx, viewer[0].ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProjectRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewProjectRepository(db)

	b := seedProject(t, db, "Beta")
	a := seedProject(t, db, "Alpha")

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)

	b.Name = "Gamma"
	n, err := repo.Update(ctx, &b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	seedDefect(t, db, models.Defect{Title: "x", ProjectID: a.ID})
	defects, err := repo.CountDefects(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, defects)

	withDefects, err := repo.WithDefects(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, withDefects.Defects, 1)

	n, err = repo.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
