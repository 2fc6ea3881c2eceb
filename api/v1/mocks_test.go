package v1

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/services"
	"github.com/stretchr/testify/mock"
)

type mockDefects struct{ mock.Mock }

func (m *mockDefects) ListDefects(ctx context.Context, filter dto.DefectFilter) ([]models.Defect, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Defect), args.Error(1)
}

func (m *mockDefects) GetDefect(ctx context.Context, id uint) (*models.Defect, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Defect)
	return d, args.Error(1)
}

func (m *mockDefects) CreateDefect(ctx context.Context, caller models.Caller, req dto.CreateDefectRequest, files []*multipart.FileHeader) (*models.Defect, error) {
	args := m.Called(ctx, caller, req, files)
	d, _ := args.Get(0).(*models.Defect)
	return d, args.Error(1)
}

func (m *mockDefects) UpdateDefect(ctx context.Context, id uint, req dto.UpdateDefectRequest) (*models.Defect, error) {
	args := m.Called(ctx, id, req)
	d, _ := args.Get(0).(*models.Defect)
	return d, args.Error(1)
}

func (m *mockDefects) DeleteDefect(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDefects) AddComment(ctx context.Context, caller models.Caller, defectID uint, text string, files []*multipart.FileHeader) (*models.DefectComment, error) {
	args := m.Called(ctx, caller, defectID, text, files)
	c, _ := args.Get(0).(*models.DefectComment)
	return c, args.Error(1)
}

func (m *mockDefects) EditComment(ctx context.Context, caller models.Caller, defectID, commentID uint, text string) (*models.DefectComment, error) {
	args := m.Called(ctx, caller, defectID, commentID, text)
	c, _ := args.Get(0).(*models.DefectComment)
	return c, args.Error(1)
}

func (m *mockDefects) ChangeStatus(ctx context.Context, caller models.Caller, id uint, status string) (*models.Defect, error) {
	args := m.Called(ctx, caller, id, status)
	d, _ := args.Get(0).(*models.Defect)
	return d, args.Error(1)
}

func (m *mockDefects) OpenDefectAttachment(ctx context.Context, defectID, attachmentID uint) (*services.AttachmentContent, error) {
	args := m.Called(ctx, defectID, attachmentID)
	a, _ := args.Get(0).(*services.AttachmentContent)
	return a, args.Error(1)
}

func (m *mockDefects) OpenCommentAttachment(ctx context.Context, defectID, commentID, attachmentID uint) (*services.AttachmentContent, error) {
	args := m.Called(ctx, defectID, commentID, attachmentID)
	a, _ := args.Get(0).(*services.AttachmentContent)
	return a, args.Error(1)
}

type mockProjects struct{ mock.Mock }

func (m *mockProjects) ListProjects(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjects) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Project)
	return p, args.Error(1)
}

func (m *mockProjects) CreateProject(ctx context.Context, req dto.ProjectRequest) (*models.Project, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.Project)
	return p, args.Error(1)
}

func (m *mockProjects) UpdateProject(ctx context.Context, id uint, req dto.ProjectRequest) (*models.Project, error) {
	args := m.Called(ctx, id, req)
	p, _ := args.Get(0).(*models.Project)
	return p, args.Error(1)
}

func (m *mockProjects) DeleteProject(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) DefectsReport(ctx context.Context) (*dto.DefectsReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*dto.DefectsReport)
	return r, args.Error(1)
}

func (m *mockReports) ExportDefects(ctx context.Context, format string) (*dto.ReportFile, error) {
	args := m.Called(ctx, format)
	f, _ := args.Get(0).(*dto.ReportFile)
	return f, args.Error(1)
}

func (m *mockReports) ProjectsReport(ctx context.Context) ([]dto.ProjectReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]dto.ProjectReport)
	return r, args.Error(1)
}

func (m *mockReports) Statistics(ctx context.Context) (*dto.Statistics, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*dto.Statistics)
	return s, args.Error(1)
}

func (m *mockReports) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*dto.Dashboard)
	return d, args.Error(1)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]dto.UserResponse)
	return u, args.Error(1)
}

func (m *mockAccounts) GetUser(ctx context.Context, id string) (*dto.EditUserResponse, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*dto.EditUserResponse)
	return u, args.Error(1)
}

func (m *mockAccounts) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*dto.UserResponse)
	return u, args.Error(1)
}

func (m *mockAccounts) EditUser(ctx context.Context, id string, req dto.EditUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, id, req)
	u, _ := args.Get(0).(*dto.UserResponse)
	return u, args.Error(1)
}

func (m *mockAccounts) DeleteUser(ctx context.Context, caller models.Caller, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *mockAccounts) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]dto.RoleResponse)
	return r, args.Error(1)
}

func (m *mockAccounts) CreateRole(ctx context.Context, name string) (*dto.RoleResponse, error) {
	args := m.Called(ctx, name)
	r, _ := args.Get(0).(*dto.RoleResponse)
	return r, args.Error(1)
}

func (m *mockAccounts) DeleteRole(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*dto.AuthResponse)
	return r, args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuth) TTL() time.Duration { return time.Hour }

// roleAuthenticator treats the bearer token as the caller's single role
type roleAuthenticator struct{}

func (roleAuthenticator) Authenticate(_ context.Context, token string) (*models.Caller, error) {
	if token == "" || token == "invalid" {
		return nil, services.ErrInvalidToken
	}
	return &models.Caller{UserID: "user-" + token, Email: token + "@example.com", Roles: []string{token}}, nil
}
