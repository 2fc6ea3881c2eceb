package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/defect-tracker/database"
	"github.com/defect-tracker/lib/storage"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/repositories"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	args := m.Called(ctx, routingKey, v)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type fixture struct {
	db       *gorm.DB
	fs       afero.Fs
	events   *mockPublisher
	identity *IdentityService
	defects  *DefectService
	projects *ProjectService
	reports  *ReportService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	events := &mockPublisher{}
	events.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	fs := afero.NewMemMapFs()
	users := repositories.NewUserRepository(db)
	roles := repositories.NewRoleRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	defectRepo := repositories.NewDefectRepository(db)
	identity := NewIdentityService(users, roles)

	defects := NewDefectService(DefectServiceDeps{
		Defects:     defectRepo,
		Projects:    projectRepo,
		Users:       users,
		Comments:    repositories.NewCommentRepository(db),
		Attachments: repositories.NewAttachmentRepository(db),
		Files:       storage.NewLocalStorageFs(fs),
		Events:      events,
	})
	defects.now = func() time.Time { return fixedNow }

	projects := NewProjectService(projectRepo)
	projects.now = func() time.Time { return fixedNow }

	reports := NewReportService(defectRepo, projectRepo)
	reports.now = func() time.Time { return fixedNow }

	return &fixture{
		db:       db,
		fs:       fs,
		events:   events,
		identity: identity,
		defects:  defects,
		projects: projects,
		reports:  reports,
		accounts: NewAccountService(identity),
	}
}

// user stores an account without a real password hash
func (f *fixture) user(t *testing.T, email string, roles ...string) models.Caller {
	t.Helper()
	ctx := context.Background()
	u := &models.User{UserName: email, Email: email, PasswordHash: "x"}
	require.NoError(t, repositories.NewUserRepository(f.db).Create(ctx, u))
	for _, r := range roles {
		exists, err := f.identity.RoleExists(ctx, r)
		require.NoError(t, err)
		if !exists {
			_, err := f.identity.CreateRole(ctx, r)
			require.NoError(t, err)
		}
	}
	require.NoError(t, f.identity.AddToRoles(ctx, u, roles...))
	return models.Caller{UserID: u.ID, Email: email, Roles: roles}
}

func (f *fixture) project(t *testing.T, name string) models.Project {
	t.Helper()
	p := models.Project{Name: name, StartDate: datatypes.Date(fixedNow)}
	require.NoError(t, repositories.NewProjectRepository(f.db).Create(context.Background(), &p))
	return p
}

func (f *fixture) defect(t *testing.T, d models.Defect) models.Defect {
	t.Helper()
	if d.Status == "" {
		d.Status = models.DefectStatusNew
	}
	if d.Priority == "" {
		d.Priority = models.DefectPriorityMedium
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = fixedNow
	}
	require.NoError(t, repositories.NewDefectRepository(f.db).Create(context.Background(), &d))
	return d
}

// upload builds a multipart file header as gin would receive it
func upload(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("attachments", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["attachments"][0]
}

func ptr[T any](v T) *T { return &v }
