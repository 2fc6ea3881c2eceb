package models

import (
	"time"

	"gorm.io/datatypes"
)

// DefectStatus represents the lifecycle stage of a defect
type DefectStatus string

const (
	DefectStatusNew        DefectStatus = "New"
	DefectStatusInProgress DefectStatus = "InProgress"
	DefectStatusOnReview   DefectStatus = "OnReview"
	DefectStatusClosed     DefectStatus = "Closed"
	DefectStatusCancelled  DefectStatus = "Cancelled"
)

// DefectStatuses lists every status in declaration order
var DefectStatuses = []DefectStatus{
	DefectStatusNew,
	DefectStatusInProgress,
	DefectStatusOnReview,
	DefectStatusClosed,
	DefectStatusCancelled,
}

// ParseDefectStatus returns the status with the given name
func ParseDefectStatus(s string) (DefectStatus, bool) {
	for _, st := range DefectStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsOpen reports whether the status is neither Closed nor Cancelled
func (s DefectStatus) IsOpen() bool {
	return s != DefectStatusClosed && s != DefectStatusCancelled
}

// OpenDefectStatuses lists the statuses for which IsOpen holds
func OpenDefectStatuses() []DefectStatus {
	open := make([]DefectStatus, 0, len(DefectStatuses))
	for _, st := range DefectStatuses {
		if st.IsOpen() {
			open = append(open, st)
		}
	}
	return open
}

// DefectPriority represents how urgent a defect is
type DefectPriority string

const (
	DefectPriorityLow    DefectPriority = "Low"
	DefectPriorityMedium DefectPriority = "Medium"
	DefectPriorityHigh   DefectPriority = "High"
)

// DefectPriorities lists every priority in declaration order
var DefectPriorities = []DefectPriority{
	DefectPriorityLow,
	DefectPriorityMedium,
	DefectPriorityHigh,
}

// ParseDefectPriority returns the priority with the given name
func ParseDefectPriority(s string) (DefectPriority, bool) {
	for _, p := range DefectPriorities {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Defect represents a tracked issue filed against a project
type Defect struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Status      DefectStatus    `json:"status" gorm:"type:varchar(20);not null;default:'New';index"`
	Priority    DefectPriority  `json:"priority" gorm:"type:varchar(10);not null;default:'Medium';index"`
	DueDate     *datatypes.Date `json:"dueDate"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"not null"`

	ProjectID  uint    `json:"projectId" gorm:"not null;index"`
	AssigneeID *string `json:"assigneeId" gorm:"size:36;index"`
	CreatorID  *string `json:"creatorId" gorm:"size:36;index"`

	// Relations
	Project     *Project           `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Assignee    *User              `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL"`
	Creator     *User              `json:"creator,omitempty" gorm:"foreignKey:CreatorID;constraint:OnDelete:SET NULL"`
	Comments    []DefectComment    `json:"comments,omitempty" gorm:"foreignKey:DefectID;constraint:OnDelete:CASCADE"`
	Attachments []DefectAttachment `json:"attachments,omitempty" gorm:"foreignKey:DefectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for Defect model
func (Defect) TableName() string {
	return "defects"
}

// IsOverdue reports whether the due date lies strictly before today's calendar date and the
// defect is not closed. Only the calendar dates are compared, never the instants.
func (d Defect) IsOverdue(today time.Time) bool {
	if d.DueDate == nil || d.Status == DefectStatusClosed {
		return false
	}
	return CalendarDate(time.Time(*d.DueDate)).Before(CalendarDate(today))
}

// CalendarDate returns midnight UTC of the day t falls on in its own location
func CalendarDate(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
