package repositories

import (
	"context"
	"strings"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefectCriteria narrows a defect listing; zero values impose no constraint
type DefectCriteria struct {
	Search    string
	Status    models.DefectStatus
	Priority  models.DefectPriority
	ProjectID uint
}

// DefectRepository handles database operations for defects
type DefectRepository struct {
	db *gorm.DB
}

// NewDefectRepository creates a new defect repository instance
func NewDefectRepository(db *gorm.DB) *DefectRepository {
	return &DefectRepository{db: db}
}

// withPeople preloads the project, assignee and creator of each defect
func withPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("Project").Preload("Assignee").Preload("Creator")
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Find lists defects matching every non-empty criterion, in insertion order
func (r *DefectRepository) Find(ctx context.Context, c DefectCriteria) ([]models.Defect, error) {
	db := withPeople(r.db.WithContext(ctx).Model(&models.Defect{}))

	if search := strings.TrimSpace(c.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		db = db.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if c.Status != "" {
		db = db.Where("status = ?", c.Status)
	}
	if c.Priority != "" {
		db = db.Where("priority = ?", c.Priority)
	}
	if c.ProjectID != 0 {
		db = db.Where("project_id = ?", c.ProjectID)
	}

	var defects []models.Defect
	err := db.Order("id").Find(&defects).Error
	return defects, err
}

// FindByID retrieves a defect with its project and people
func (r *DefectRepository) FindByID(ctx context.Context, id uint) (models.Defect, error) {
	var defect models.Defect
	err := withPeople(r.db.WithContext(ctx)).First(&defect, "id = ?", id).Error
	return defect, err
}

// FindDetails retrieves a defect with comments, their authors and every attachment
func (r *DefectRepository) FindDetails(ctx context.Context, id uint) (models.Defect, error) {
	var defect models.Defect
	err := withPeople(r.db.WithContext(ctx)).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("defect_comments.created_at").Order("defect_comments.id")
		}).
		Preload("Comments.Author").
		Preload("Comments.Attachments").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("defect_attachments.id") }).
		Preload("Attachments.UploadedBy").
		First(&defect, "id = ?", id).Error
	return defect, err
}

// Create inserts a new defect into the database
func (r *DefectRepository) Create(ctx context.Context, defect *models.Defect) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(defect).Error
}

// Update replaces the editable columns of a defect and reports how many rows matched
func (r *DefectRepository) Update(ctx context.Context, defect *models.Defect) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Defect{}).
		Where("id = ?", defect.ID).
		Updates(map[string]interface{}{
			"title":       defect.Title,
			"description": defect.Description,
			"status":      defect.Status,
			"priority":    defect.Priority,
			"project_id":  defect.ProjectID,
			"due_date":    defect.DueDate,
			"assignee_id": defect.AssigneeID,
		})
	return result.RowsAffected, result.Error
}

// UpdateStatus overwrites the status of a defect
func (r *DefectRepository) UpdateStatus(ctx context.Context, id uint, status models.DefectStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Defect{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// Exists checks if a defect exists
func (r *DefectRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Defect{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Delete removes a defect with its comments and attachment rows in one transaction
func (r *DefectRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.DefectComment{}).Select("id").Where("defect_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("defect_id = ?", id).Delete(&models.DefectComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("defect_id = ?", id).Delete(&models.DefectAttachment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Defect{}, "id = ?", id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// FindAllNewestFirst loads every defect with its people, newest first
func (r *DefectRepository) FindAllNewestFirst(ctx context.Context) ([]models.Defect, error) {
	var defects []models.Defect
	err := withPeople(r.db.WithContext(ctx)).Order("created_at DESC").Order("id DESC").Find(&defects).Error
	return defects, err
}

// FindRecent returns the newest defects with project and assignee
func (r *DefectRepository) FindRecent(ctx context.Context, limit int) ([]models.Defect, error) {
	var defects []models.Defect
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Assignee").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&defects).Error
	return defects, err
}

// FindSummaries loads the columns needed for statistics without relations
func (r *DefectRepository) FindSummaries(ctx context.Context) ([]models.Defect, error) {
	var defects []models.Defect
	err := r.db.WithContext(ctx).
		Select("id", "status", "priority", "due_date", "created_at", "project_id").
		Find(&defects).Error
	return defects, err
}

// Count returns the number of defects
func (r *DefectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Defect{}).Count(&count).Error
	return count, err
}

// CountOpen returns the number of defects that are neither closed nor cancelled
func (r *DefectRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Defect{}).
		Where("status IN ?", models.OpenDefectStatuses()).
		Count(&count).Error
	return count, err
}
