package repositories

import (
	"context"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository instance
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindAll retrieves all projects ordered by name
func (r *ProjectRepository) FindAll(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	result := r.db.WithContext(ctx).Order("name").Order("id").Find(&projects)
	return projects, result.Error
}

// FindByID retrieves a project by its ID
func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	result := r.db.WithContext(ctx).First(&project, "id = ?", id)
	return project, result.Error
}

// WithDefects loads a project together with its defects and their people
func (r *ProjectRepository) WithDefects(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	result := r.db.WithContext(ctx).
		Preload("Defects", func(db *gorm.DB) *gorm.DB { return db.Order("defects.id") }).
		Preload("Defects.Assignee").
		Preload("Defects.Creator").
		First(&project, "id = ?", id)
	return project, result.Error
}

// Create inserts a new project into the database
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update replaces the editable columns of a project and reports how many rows matched
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]interface{}{
			"name":        project.Name,
			"description": project.Description,
			"start_date":  project.StartDate,
			"end_date":    project.EndDate,
		})
	return result.RowsAffected, result.Error
}

// Delete removes a project from the database
func (r *ProjectRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// Exists checks if a project exists
func (r *ProjectRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Count returns the number of projects
func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Count(&count).Error
	return count, err
}

// CountDefects returns how many defects are filed against the project
func (r *ProjectRepository) CountDefects(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Defect{}).Where("project_id = ?", id).Count(&count).Error
	return count, err
}

// FindAllWithDefects loads every project with the defect columns reports need
func (r *ProjectRepository) FindAllWithDefects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Preload("Defects", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "project_id", "status", "due_date")
		}).
		Order("name").Order("id").
		Find(&projects).Error
	return projects, err
}
