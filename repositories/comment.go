package repositories

import (
	"context"
	"time"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository handles database operations for defect comments
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository instance
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.DefectComment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
}

// FindByID retrieves a comment of the given defect with its author and attachments
func (r *CommentRepository) FindByID(ctx context.Context, defectID, id uint) (models.DefectComment, error) {
	var comment models.DefectComment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Attachments").
		First(&comment, "id = ? AND defect_id = ?", id, defectID).Error
	return comment, err
}

// UpdateText replaces the text and stamps the edit time
func (r *CommentRepository) UpdateText(ctx context.Context, id uint, text string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.DefectComment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"text": text, "updated_at": at})
	return result.RowsAffected, result.Error
}
