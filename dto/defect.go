package dto

import (
	"github.com/defect-tracker/models"
)

// DefectFilter carries the raw query parameters of the defect list
type DefectFilter struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	ProjectID uint   `form:"projectId"`
	Priority  string `form:"priority"`
}

// CreateDefectRequest represents the fields a client may set when filing a defect.
// Status, creator and creation time are always assigned by the server.
type CreateDefectRequest struct {
	Title       string  `json:"title" form:"title" binding:"required,max=255"`
	Description string  `json:"description" form:"description"`
	Priority    string  `json:"priority" form:"priority" binding:"omitempty,oneof=Low Medium High"`
	ProjectID   uint    `json:"projectId" form:"projectId" binding:"required"`
	AssigneeID  *string `json:"assigneeId" form:"assigneeId"`
	DueDate     string  `json:"dueDate" form:"dueDate" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateDefectRequest replaces every editable field of a defect
type UpdateDefectRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" binding:"required,oneof=New InProgress OnReview Closed Cancelled"`
	Priority    string  `json:"priority" binding:"required,oneof=Low Medium High"`
	ProjectID   uint    `json:"projectId" binding:"required"`
	AssigneeID  *string `json:"assigneeId"`
	DueDate     string  `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`
}

// ChangeStatusRequest represents a status transition
type ChangeStatusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

// CommentRequest represents the text of a new or edited comment
type CommentRequest struct {
	Text string `json:"text" form:"text"`
}

// DefectListResponse wraps a filtered listing with the values used to filter it
type DefectListResponse struct {
	Items  []models.Defect `json:"items"`
	Filter DefectFilter    `json:"filter"`
	Total  int             `json:"total"`
}

// Lookups feeds the project and assignee selects of defect forms
type Lookups struct {
	Projects   []LookupItem `json:"projects"`
	Users      []LookupItem `json:"users"`
	Statuses   []string     `json:"statuses"`
	Priorities []string     `json:"priorities"`
}

// LookupItem is an id and display name pair
type LookupItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
