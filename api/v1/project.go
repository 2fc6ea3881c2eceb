package v1

import (
	"context"
	"net/http"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/gin-gonic/gin"
)

// ProjectService is the project store as the handlers use it
type ProjectService interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	CreateProject(ctx context.Context, req dto.ProjectRequest) (*models.Project, error)
	UpdateProject(ctx context.Context, id uint, req dto.ProjectRequest) (*models.Project, error)
	DeleteProject(ctx context.Context, id uint) error
}

// ProjectHandler serves the /projects endpoints
type ProjectHandler struct {
	projects ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List returns every project ordered by name
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to retrieve projects", err)
		return
	}
	respondOK(c, http.StatusOK, projects)
}

// Get returns a project with its defects
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to retrieve project", err)
		return
	}
	respondOK(c, http.StatusOK, project)
}

// Create stores a new project
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create project", err)
		return
	}
	respondOK(c, http.StatusCreated, project)
}

// Update replaces the editable fields of a project
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	project, err := h.projects.UpdateProject(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, "Failed to update project", err)
		return
	}
	respondOK(c, http.StatusOK, project)
}

// Delete removes a project without defects
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Project deleted successfully",
	})
}
