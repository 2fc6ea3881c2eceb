package repositories

import (
	"context"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttachmentRepository handles database operations for defect and comment attachments
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new attachment repository instance
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// CreateDefectAttachment records a stored file against a defect
func (r *AttachmentRepository) CreateDefectAttachment(ctx context.Context, a *models.DefectAttachment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

// CreateCommentAttachment records a stored file against a comment
func (r *AttachmentRepository) CreateCommentAttachment(ctx context.Context, a *models.CommentAttachment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

// FindDefectAttachment retrieves an attachment that belongs to the given defect
func (r *AttachmentRepository) FindDefectAttachment(ctx context.Context, defectID, id uint) (models.DefectAttachment, error) {
	var a models.DefectAttachment
	err := r.db.WithContext(ctx).First(&a, "id = ? AND defect_id = ?", id, defectID).Error
	return a, err
}

// FindCommentAttachment retrieves an attachment of a comment that belongs to the given defect
func (r *AttachmentRepository) FindCommentAttachment(ctx context.Context, defectID, commentID, id uint) (models.CommentAttachment, error) {
	var a models.CommentAttachment
	err := r.db.WithContext(ctx).
		Joins("JOIN defect_comments ON defect_comments.id = comment_attachments.comment_id").
		Where("comment_attachments.id = ? AND comment_attachments.comment_id = ? AND defect_comments.defect_id = ?", id, commentID, defectID).
		First(&a).Error
	return a, err
}

// FilePathsForDefect lists the stored paths of every file attached to a defect or its comments
func (r *AttachmentRepository) FilePathsForDefect(ctx context.Context, defectID uint) ([]string, error) {
	var paths []string
	if err := r.db.WithContext(ctx).Model(&models.DefectAttachment{}).
		Where("defect_id = ?", defectID).
		Pluck("file_path", &paths).Error; err != nil {
		return nil, err
	}

	var commentPaths []string
	if err := r.db.WithContext(ctx).Model(&models.CommentAttachment{}).
		Joins("JOIN defect_comments ON defect_comments.id = comment_attachments.comment_id").
		Where("defect_comments.defect_id = ?", defectID).
		Pluck("comment_attachments.file_path", &commentPaths).Error; err != nil {
		return nil, err
	}
	return append(paths, commentPaths...), nil
}
