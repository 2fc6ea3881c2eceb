package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/repositories"
)

// ProjectService handles business logic for projects
type ProjectService struct {
	projectRepo *repositories.ProjectRepository
	now         func() time.Time
}

// NewProjectService creates a new project service instance
func NewProjectService(projectRepo *repositories.ProjectRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		now:         time.Now,
	}
}

// ListProjects retrieves every project ordered by name
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := s.projectRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProject retrieves a project with its defects
func (s *ProjectService) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.projectRepo.WithDefects(ctx, id)
	if err != nil {
		return nil, notFound(err, "project")
	}
	return &project, nil
}

// CreateProject stores a new project; the start date defaults to today
func (s *ProjectService) CreateProject(ctx context.Context, req dto.ProjectRequest) (*models.Project, error) {
	project, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// UpdateProject replaces every editable field of a project
func (s *ProjectService) UpdateProject(ctx context.Context, id uint, req dto.ProjectRequest) (*models.Project, error) {
	project, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	project.ID = id

	n, err := s.projectRepo.Update(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("project: %w", ErrNotFound)
	}
	return project, nil
}

// DeleteProject removes a project that no longer has defects
func (s *ProjectService) DeleteProject(ctx context.Context, id uint) error {
	exists, err := s.projectRepo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("find project: %w", err)
	}
	if !exists {
		return fmt.Errorf("project: %w", ErrNotFound)
	}

	defects, err := s.projectRepo.CountDefects(ctx, id)
	if err != nil {
		return fmt.Errorf("count project defects: %w", err)
	}
	if defects > 0 {
		return Conflict("Project still has %d defect(s) and cannot be deleted.", defects)
	}

	if _, err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *ProjectService) fromRequest(req dto.ProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, Invalid("name", "Name is required.")
	}

	var problems ValidationErrors
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		problems = append(problems, err.(ValidationErrors)...)
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		problems = append(problems, err.(ValidationErrors)...)
	}
	if start == nil {
		d := today(s.now())
		start = &d
	}
	if end != nil && time.Time(*end).Before(time.Time(*start)) {
		problems = append(problems, FieldError{Field: "endDate", Message: "End date must not be before the start date."})
	}
	if len(problems) > 0 {
		return nil, problems
	}

	return &models.Project{
		Name:        name,
		Description: req.Description,
		StartDate:   *start,
		EndDate:     end,
	}, nil
}
