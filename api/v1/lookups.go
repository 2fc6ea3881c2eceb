package v1

import (
	"net/http"
	"strconv"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/gin-gonic/gin"
)

// LookupHandler feeds the selects of defect forms
type LookupHandler struct {
	projects ProjectService
	accounts AccountService
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(projects ProjectService, accounts AccountService) *LookupHandler {
	return &LookupHandler{projects: projects, accounts: accounts}
}

// Get returns projects, users, statuses and priorities
func (h *LookupHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := h.projects.ListProjects(ctx)
	if err != nil {
		respondError(c, "Failed to retrieve projects", err)
		return
	}
	users, err := h.accounts.ListUsers(ctx)
	if err != nil {
		respondError(c, "Failed to retrieve users", err)
		return
	}

	lookups := dto.Lookups{
		Projects:   make([]dto.LookupItem, 0, len(projects)),
		Users:      make([]dto.LookupItem, 0, len(users)),
		Statuses:   make([]string, 0, len(models.DefectStatuses)),
		Priorities: make([]string, 0, len(models.DefectPriorities)),
	}
	for _, p := range projects {
		lookups.Projects = append(lookups.Projects, dto.LookupItem{ID: strconv.FormatUint(uint64(p.ID), 10), Name: p.Name})
	}
	for _, u := range users {
		lookups.Users = append(lookups.Users, dto.LookupItem{ID: u.ID, Name: u.UserName})
	}
	for _, s := range models.DefectStatuses {
		lookups.Statuses = append(lookups.Statuses, string(s))
	}
	for _, p := range models.DefectPriorities {
		lookups.Priorities = append(lookups.Priorities, string(p))
	}

	respondOK(c, http.StatusOK, lookups)
}
