package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/lib/messaging"
	"github.com/defect-tracker/lib/storage"
	"github.com/defect-tracker/metrics"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentUploadError reports a file that could not be stored after its defect or
// comment was already saved. Earlier attachments of the same request stay in place.
type AttachmentUploadError struct {
	DefectID uint
	FileName string
	Err      error
}

func (e *AttachmentUploadError) Error() string {
	return fmt.Sprintf("defect %d saved but attachment %q failed: %v", e.DefectID, e.FileName, e.Err)
}

func (e *AttachmentUploadError) Unwrap() error { return e.Err }

// DefectService handles the defect workflow: filing, editing, comments and status changes
type DefectService struct {
	defects     *repositories.DefectRepository
	projects    *repositories.ProjectRepository
	users       *repositories.UserRepository
	comments    *repositories.CommentRepository
	attachments *repositories.AttachmentRepository
	files       storage.FileStorage
	events      messaging.Publisher
	log         *zap.Logger
	now         func() time.Time
}

// DefectServiceDeps groups the collaborators of DefectService
type DefectServiceDeps struct {
	Defects     *repositories.DefectRepository
	Projects    *repositories.ProjectRepository
	Users       *repositories.UserRepository
	Comments    *repositories.CommentRepository
	Attachments *repositories.AttachmentRepository
	Files       storage.FileStorage
	Events      messaging.Publisher
	Log         *zap.Logger
}

// NewDefectService creates a new defect service instance
func NewDefectService(d DefectServiceDeps) *DefectService {
	events := d.Events
	if events == nil {
		events = messaging.NopPublisher{}
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &DefectService{
		defects:     d.Defects,
		projects:    d.Projects,
		users:       d.Users,
		comments:    d.Comments,
		attachments: d.Attachments,
		files:       d.Files,
		events:      events,
		log:         log,
		now:         time.Now,
	}
}

// ListDefects returns defects matching the filter. Unknown status or priority
// names are ignored rather than rejected.
func (s *DefectService) ListDefects(ctx context.Context, filter dto.DefectFilter) ([]models.Defect, error) {
	criteria := repositories.DefectCriteria{
		Search:    filter.Search,
		ProjectID: filter.ProjectID,
	}
	if st, ok := models.ParseDefectStatus(filter.Status); ok {
		criteria.Status = st
	}
	if p, ok := models.ParseDefectPriority(filter.Priority); ok {
		criteria.Priority = p
	}

	defects, err := s.defects.Find(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("list defects: %w", err)
	}
	return defects, nil
}

// GetDefect loads a defect with comments and attachments
func (s *DefectService) GetDefect(ctx context.Context, id uint) (*models.Defect, error) {
	defect, err := s.defects.FindDetails(ctx, id)
	if err != nil {
		return nil, notFound(err, "defect")
	}
	return &defect, nil
}

// CreateDefect files a new defect. Status is always New and the caller is the creator,
// whatever the request says. Each upload is stored and recorded as it arrives.
func (s *DefectService) CreateDefect(ctx context.Context, caller models.Caller, req dto.CreateDefectRequest, files []*multipart.FileHeader) (*models.Defect, error) {
	priority := models.DefectPriorityMedium
	if req.Priority != "" {
		p, ok := models.ParseDefectPriority(req.Priority)
		if !ok {
			return nil, Invalid("priority", fmt.Sprintf("Unknown priority '%s'.", req.Priority))
		}
		priority = p
	}

	defect := &models.Defect{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      models.DefectStatusNew,
		Priority:    priority,
		ProjectID:   req.ProjectID,
		AssigneeID:  normalizeID(req.AssigneeID),
		CreatorID:   &caller.UserID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.validate(ctx, defect, req.DueDate); err != nil {
		return nil, err
	}

	if err := s.defects.Create(ctx, defect); err != nil {
		return nil, fmt.Errorf("create defect: %w", err)
	}
	metrics.DefectsCreatedTotal.Inc()

	for _, fh := range files {
		if fh == nil || fh.Size == 0 {
			continue
		}
		if _, err := s.storeDefectAttachment(ctx, caller, defect.ID, fh); err != nil {
			return defect, &AttachmentUploadError{DefectID: defect.ID, FileName: fh.Filename, Err: err}
		}
	}

	s.publish(ctx, messaging.DefectCreated, messaging.DefectEvent{
		DefectID:  defect.ID,
		ProjectID: defect.ProjectID,
		Title:     defect.Title,
		Status:    string(defect.Status),
		ActorID:   caller.UserID,
	})
	return defect, nil
}

// UpdateDefect replaces every editable field. Creation time and creator never change.
func (s *DefectService) UpdateDefect(ctx context.Context, id uint, req dto.UpdateDefectRequest) (*models.Defect, error) {
	status, ok := models.ParseDefectStatus(req.Status)
	if !ok {
		return nil, Invalid("status", fmt.Sprintf("Unknown status '%s'.", req.Status))
	}
	priority, ok := models.ParseDefectPriority(req.Priority)
	if !ok {
		return nil, Invalid("priority", fmt.Sprintf("Unknown priority '%s'.", req.Priority))
	}

	defect := &models.Defect{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		ProjectID:   req.ProjectID,
		AssigneeID:  normalizeID(req.AssigneeID),
	}
	if err := s.validate(ctx, defect, req.DueDate); err != nil {
		return nil, err
	}

	n, err := s.defects.Update(ctx, defect)
	if err != nil {
		return nil, fmt.Errorf("update defect: %w", err)
	}
	if n == 0 {
		exists, err := s.defects.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find defect: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("defect: %w", ErrNotFound)
		}
		return nil, ErrConcurrencyConflict
	}

	updated, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "defect")
	}
	return &updated, nil
}

// DeleteDefect removes a defect with its comments, attachments and stored files
func (s *DefectService) DeleteDefect(ctx context.Context, id uint) error {
	paths, err := s.attachments.FilePathsForDefect(ctx, id)
	if err != nil {
		return fmt.Errorf("list defect files: %w", err)
	}

	n, err := s.defects.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete defect: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("defect: %w", ErrNotFound)
	}

	for _, p := range paths {
		if err := s.files.Delete(ctx, p); err != nil {
			s.log.Sugar().Warnw("failed to delete attachment file", "defectId", id, "path", p, "err", err)
		}
	}
	return nil
}

// AddComment appends a comment to a defect. Empty text is silently ignored and
// yields a nil comment.
func (s *DefectService) AddComment(ctx context.Context, caller models.Caller, defectID uint, text string, files []*multipart.FileHeader) (*models.DefectComment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := validateCommentText(text); err != nil {
		return nil, err
	}

	exists, err := s.defects.Exists(ctx, defectID)
	if err != nil {
		return nil, fmt.Errorf("find defect: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("defect: %w", ErrNotFound)
	}

	comment := &models.DefectComment{
		Text:      text,
		DefectID:  defectID,
		AuthorID:  caller.UserID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	metrics.CommentsTotal.Inc()

	for _, fh := range files {
		if fh == nil || fh.Size == 0 {
			continue
		}
		a, err := s.storeCommentAttachment(ctx, caller, comment.ID, fh)
		if err != nil {
			return comment, &AttachmentUploadError{DefectID: defectID, FileName: fh.Filename, Err: err}
		}
		comment.Attachments = append(comment.Attachments, *a)
	}

	s.publish(ctx, messaging.DefectCommented, messaging.DefectEvent{
		DefectID:  defectID,
		CommentID: comment.ID,
		ActorID:   caller.UserID,
	})
	return comment, nil
}

// EditComment replaces the text of a comment; only its author or an Admin may do so
func (s *DefectService) EditComment(ctx context.Context, caller models.Caller, defectID, commentID uint, text string) (*models.DefectComment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Invalid("text", "Comment text is required.")
	}
	if err := validateCommentText(text); err != nil {
		return nil, err
	}

	comment, err := s.comments.FindByID(ctx, defectID, commentID)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	if comment.AuthorID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	at := s.now().UTC()
	if _, err := s.comments.UpdateText(ctx, comment.ID, text, at); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	comment.Text = text
	comment.UpdatedAt = &at
	return &comment, nil
}

// ChangeStatus overwrites the status of a defect; any status may follow any other
func (s *DefectService) ChangeStatus(ctx context.Context, caller models.Caller, id uint, status string) (*models.Defect, error) {
	st, ok := models.ParseDefectStatus(status)
	if !ok {
		return nil, Invalid("status", fmt.Sprintf("Unknown status '%s'.", status))
	}

	n, err := s.defects.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("defect: %w", ErrNotFound)
	}
	metrics.StatusChangesTotal.WithLabelValues(string(st)).Inc()

	defect, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "defect")
	}

	s.publish(ctx, messaging.DefectStatusChanged, messaging.DefectEvent{
		DefectID:  id,
		ProjectID: defect.ProjectID,
		Status:    string(st),
		ActorID:   caller.UserID,
	})
	return &defect, nil
}

// AttachmentContent is an opened stored file ready to stream
type AttachmentContent struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// OpenDefectAttachment opens a file attached to a defect
func (s *DefectService) OpenDefectAttachment(ctx context.Context, defectID, attachmentID uint) (*AttachmentContent, error) {
	a, err := s.attachments.FindDefectAttachment(ctx, defectID, attachmentID)
	if err != nil {
		return nil, notFound(err, "attachment")
	}
	return s.open(ctx, a.FilePath, a.OriginalFileName, a.ContentType, a.FileSize)
}

// OpenCommentAttachment opens a file attached to a comment of a defect
func (s *DefectService) OpenCommentAttachment(ctx context.Context, defectID, commentID, attachmentID uint) (*AttachmentContent, error) {
	a, err := s.attachments.FindCommentAttachment(ctx, defectID, commentID, attachmentID)
	if err != nil {
		return nil, notFound(err, "attachment")
	}
	return s.open(ctx, a.FilePath, a.OriginalFileName, a.ContentType, a.FileSize)
}

func (s *DefectService) open(ctx context.Context, path, name, contentType string, size int64) (*AttachmentContent, error) {
	body, err := s.files.Open(ctx, path)
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("attachment file: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return &AttachmentContent{Name: name, ContentType: contentType, Size: size, Body: body}, nil
}

// validate checks title, project, assignee and due date of a defect about to be written
func (s *DefectService) validate(ctx context.Context, defect *models.Defect, dueDate string) error {
	var problems ValidationErrors

	if defect.Title == "" {
		problems = append(problems, FieldError{Field: "title", Message: "Title is required."})
	}

	due, err := parseDate("dueDate", dueDate)
	if err != nil {
		problems = append(problems, err.(ValidationErrors)...)
	}
	defect.DueDate = due

	if defect.ProjectID == 0 {
		problems = append(problems, FieldError{Field: "projectId", Message: "Project is required."})
	} else {
		exists, err := s.projects.Exists(ctx, defect.ProjectID)
		if err != nil {
			return fmt.Errorf("find project: %w", err)
		}
		if !exists {
			problems = append(problems, FieldError{Field: "projectId", Message: "Project does not exist."})
		}
	}

	if defect.AssigneeID != nil {
		_, err := s.users.FindByID(ctx, *defect.AssigneeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			problems = append(problems, FieldError{Field: "assigneeId", Message: "Assignee does not exist."})
		} else if err != nil {
			return fmt.Errorf("find assignee: %w", err)
		}
	}

	if len(problems) > 0 {
		return problems
	}
	return nil
}

func (s *DefectService) storeDefectAttachment(ctx context.Context, caller models.Caller, defectID uint, fh *multipart.FileHeader) (*models.DefectAttachment, error) {
	stored, err := s.files.Save(ctx, fh, storage.DefectsDir)
	if err != nil {
		return nil, err
	}
	a := &models.DefectAttachment{
		FileName:         stored.FileName,
		OriginalFileName: stored.OriginalFileName,
		FilePath:         stored.Path,
		ContentType:      stored.ContentType,
		FileSize:         stored.Size,
		UploadedAt:       s.now().UTC(),
		DefectID:         defectID,
		UploadedByID:     caller.UserID,
	}
	if err := s.attachments.CreateDefectAttachment(ctx, a); err != nil {
		s.discard(ctx, stored.Path)
		return nil, fmt.Errorf("record attachment: %w", err)
	}
	metrics.AttachmentsStoredBytes.Add(float64(stored.Size))
	return a, nil
}

func (s *DefectService) storeCommentAttachment(ctx context.Context, caller models.Caller, commentID uint, fh *multipart.FileHeader) (*models.CommentAttachment, error) {
	stored, err := s.files.Save(ctx, fh, storage.CommentsDir)
	if err != nil {
		return nil, err
	}
	a := &models.CommentAttachment{
		FileName:         stored.FileName,
		OriginalFileName: stored.OriginalFileName,
		FilePath:         stored.Path,
		ContentType:      stored.ContentType,
		FileSize:         stored.Size,
		UploadedAt:       s.now().UTC(),
		CommentID:        commentID,
		UploadedByID:     caller.UserID,
	}
	if err := s.attachments.CreateCommentAttachment(ctx, a); err != nil {
		s.discard(ctx, stored.Path)
		return nil, fmt.Errorf("record attachment: %w", err)
	}
	metrics.AttachmentsStoredBytes.Add(float64(stored.Size))
	return a, nil
}

// discard removes a stored file whose database row could not be written
func (s *DefectService) discard(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		s.log.Sugar().Warnw("failed to remove orphaned upload", "path", path, "err", err)
	}
}

func (s *DefectService) publish(ctx context.Context, key string, ev messaging.DefectEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.events.PublishJSON(ctx, key, ev); err != nil {
		s.log.Sugar().Warnw("failed to publish defect event", "routingKey", key, "defectId", ev.DefectID, "err", err)
	}
}

func validateCommentText(text string) error {
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return Invalid("text", fmt.Sprintf("Comment must not exceed %d characters.", models.MaxCommentLength))
	}
	return nil
}

// normalizeID turns an empty optional id into nil
func normalizeID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}
