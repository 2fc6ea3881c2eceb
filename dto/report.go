package dto

import (
	"github.com/defect-tracker/models"
)

// DefectsReport lists every defect newest first with headline counts
type DefectsReport struct {
	Defects       []models.Defect `json:"defects"`
	TotalDefects  int             `json:"totalDefects"`
	NewDefects    int             `json:"newDefects"`
	InProgress    int             `json:"inProgressDefects"`
	ClosedDefects int             `json:"closedDefects"`
}

// ProjectReport summarizes the defects of one project
type ProjectReport struct {
	ProjectID      uint   `json:"projectId"`
	ProjectName    string `json:"projectName"`
	TotalDefects   int    `json:"totalDefects"`
	NewDefects     int    `json:"newDefects"`
	InProgress     int    `json:"inProgressDefects"`
	ClosedDefects  int    `json:"closedDefects"`
	OverdueDefects int    `json:"overdueDefects"`
}

// Statistics aggregates defects across the whole system.
// AverageResolutionDays is nil when no defect is closed.
type Statistics struct {
	TotalProjects         int64          `json:"totalProjects"`
	TotalDefects          int64          `json:"totalDefects"`
	DefectsByStatus       map[string]int `json:"defectsByStatus"`
	DefectsByPriority     map[string]int `json:"defectsByPriority"`
	DefectsByMonth        map[int]int    `json:"defectsByMonth"`
	AverageResolutionDays *float64       `json:"averageResolutionDays"`
}

// Dashboard is the landing page summary
type Dashboard struct {
	TotalProjects int64           `json:"totalProjects"`
	TotalDefects  int64           `json:"totalDefects"`
	OpenDefects   int64           `json:"openDefects"`
	RecentDefects []models.Defect `json:"recentDefects"`
}

// ReportFile is a rendered export ready for download
type ReportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportLink describes one report of the reports index
type ReportLink struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}
