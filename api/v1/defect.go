package v1

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/middleware"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/services"
	"github.com/gin-gonic/gin"
)

// attachmentsField is the multipart field carrying uploaded files
const attachmentsField = "attachments"

// DefectService is the defect workflow as the handlers use it
type DefectService interface {
	ListDefects(ctx context.Context, filter dto.DefectFilter) ([]models.Defect, error)
	GetDefect(ctx context.Context, id uint) (*models.Defect, error)
	CreateDefect(ctx context.Context, caller models.Caller, req dto.CreateDefectRequest, files []*multipart.FileHeader) (*models.Defect, error)
	UpdateDefect(ctx context.Context, id uint, req dto.UpdateDefectRequest) (*models.Defect, error)
	DeleteDefect(ctx context.Context, id uint) error
	AddComment(ctx context.Context, caller models.Caller, defectID uint, text string, files []*multipart.FileHeader) (*models.DefectComment, error)
	EditComment(ctx context.Context, caller models.Caller, defectID, commentID uint, text string) (*models.DefectComment, error)
	ChangeStatus(ctx context.Context, caller models.Caller, id uint, status string) (*models.Defect, error)
	OpenDefectAttachment(ctx context.Context, defectID, attachmentID uint) (*services.AttachmentContent, error)
	OpenCommentAttachment(ctx context.Context, defectID, commentID, attachmentID uint) (*services.AttachmentContent, error)
}

// DefectHandler serves the /defects endpoints
type DefectHandler struct {
	defects DefectService
}

// NewDefectHandler creates a new defect handler
func NewDefectHandler(defects DefectService) *DefectHandler {
	return &DefectHandler{defects: defects}
}

// List returns defects matching the query filters
func (h *DefectHandler) List(c *gin.Context) {
	var filter dto.DefectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	defects, err := h.defects.ListDefects(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Failed to retrieve defects", err)
		return
	}

	respondOK(c, http.StatusOK, dto.DefectListResponse{
		Items:  defects,
		Filter: filter,
		Total:  len(defects),
	})
}

// Get returns a defect with comments and attachments
func (h *DefectHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	defect, err := h.defects.GetDefect(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to retrieve defect", err)
		return
	}
	respondOK(c, http.StatusOK, defect)
}

// Create files a defect from JSON or a multipart form with attachments
func (h *DefectHandler) Create(c *gin.Context) {
	var req dto.CreateDefectRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	caller, _ := middleware.CallerFrom(c)

	defect, err := h.defects.CreateDefect(c.Request.Context(), caller, req, uploadedFiles(c))
	var uploadErr *services.AttachmentUploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Defect was saved but attachment '" + uploadErr.FileName + "' could not be stored",
			"data":    defect,
		})
		return
	}
	if err != nil {
		respondError(c, "Failed to create defect", err)
		return
	}

	respondOK(c, http.StatusCreated, defect)
}

// Update replaces the editable fields of a defect
func (h *DefectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateDefectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	defect, err := h.defects.UpdateDefect(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, "Failed to update defect", err)
		return
	}
	respondOK(c, http.StatusOK, defect)
}

// Delete removes a defect with its comments and files
func (h *DefectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.defects.DeleteDefect(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete defect", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Defect deleted successfully",
	})
}

// AddComment appends a comment; an empty text is accepted and ignored
func (h *DefectHandler) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	caller, _ := middleware.CallerFrom(c)

	comment, err := h.defects.AddComment(c.Request.Context(), caller, id, req.Text, uploadedFiles(c))
	var uploadErr *services.AttachmentUploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Comment was saved but attachment '" + uploadErr.FileName + "' could not be stored",
			"data":    comment,
		})
		return
	}
	if err != nil {
		respondError(c, "Failed to add comment", err)
		return
	}
	if comment == nil {
		respondOK(c, http.StatusOK, nil)
		return
	}
	respondOK(c, http.StatusCreated, comment)
}

// EditComment replaces the text of a comment
func (h *DefectHandler) EditComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	caller, _ := middleware.CallerFrom(c)

	comment, err := h.defects.EditComment(c.Request.Context(), caller, id, commentID, req.Text)
	if err != nil {
		respondError(c, "Failed to update comment", err)
		return
	}
	respondOK(c, http.StatusOK, comment)
}

// ChangeStatus moves a defect to another status
func (h *DefectHandler) ChangeStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	caller, _ := middleware.CallerFrom(c)

	defect, err := h.defects.ChangeStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		respondError(c, "Failed to change status", err)
		return
	}
	respondOK(c, http.StatusOK, defect)
}

// DownloadAttachment streams a file attached to a defect
func (h *DefectHandler) DownloadAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}

	content, err := h.defects.OpenDefectAttachment(c.Request.Context(), id, attachmentID)
	if err != nil {
		respondError(c, "Failed to open attachment", err)
		return
	}
	streamAttachment(c, content)
}

// DownloadCommentAttachment streams a file attached to a comment
func (h *DefectHandler) DownloadCommentAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	attachmentID, ok := paramID(c, "attachmentId")
	if !ok {
		return
	}

	content, err := h.defects.OpenCommentAttachment(c.Request.Context(), id, commentID, attachmentID)
	if err != nil {
		respondError(c, "Failed to open attachment", err)
		return
	}
	streamAttachment(c, content)
}

func streamAttachment(c *gin.Context, content *services.AttachmentContent) {
	defer content.Body.Close()

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := content.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, content.Body, map[string]string{
		"Content-Disposition": attachmentDisposition(content.Name),
	})
}

// attachmentDisposition builds a download header that survives non-ASCII names
func attachmentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// uploadedFiles returns the files of a multipart request; other requests have none
func uploadedFiles(c *gin.Context) []*multipart.FileHeader {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[attachmentsField]
}
