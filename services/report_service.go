package services

import (
	"context"
	"fmt"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/metrics"
	"github.com/defect-tracker/models"
	"github.com/defect-tracker/repositories"
)

// RecentDefectsLimit is how many defects the dashboard shows
const RecentDefectsLimit = 10

// ReportService aggregates defects into reports, statistics and exports
type ReportService struct {
	defects  *repositories.DefectRepository
	projects *repositories.ProjectRepository
	now      func() time.Time
}

// NewReportService creates a new report service instance
func NewReportService(defects *repositories.DefectRepository, projects *repositories.ProjectRepository) *ReportService {
	return &ReportService{defects: defects, projects: projects, now: time.Now}
}

// DefectsReport lists every defect newest first with status totals
func (s *ReportService) DefectsReport(ctx context.Context) (*dto.DefectsReport, error) {
	defects, err := s.defects.FindAllNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("load defects report: %w", err)
	}

	report := &dto.DefectsReport{Defects: defects, TotalDefects: len(defects)}
	for _, d := range defects {
		switch d.Status {
		case models.DefectStatusNew:
			report.NewDefects++
		case models.DefectStatusInProgress:
			report.InProgress++
		case models.DefectStatusClosed:
			report.ClosedDefects++
		}
	}
	return report, nil
}

// ExportDefects renders the defects report as "csv" (semicolons) or "excel" (tabs)
func (s *ReportService) ExportDefects(ctx context.Context, format string) (*dto.ReportFile, error) {
	f, ok := exportFormats[format]
	if !ok {
		return nil, Invalid("exportType", fmt.Sprintf("Unknown export type '%s'; use csv or excel.", format))
	}

	defects, err := s.defects.FindAllNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("load defects report: %w", err)
	}
	now := s.now()
	content, err := renderDefects(defects, f.comma, now.Location())
	if err != nil {
		return nil, err
	}
	metrics.ReportExportsTotal.WithLabelValues(format).Inc()

	return &dto.ReportFile{
		FileName:    exportFileName(now, f.extension),
		ContentType: f.contentType,
		Content:     content,
	}, nil
}

// ProjectsReport counts defects per project, including overdue ones
func (s *ReportService) ProjectsReport(ctx context.Context) ([]dto.ProjectReport, error) {
	projects, err := s.projects.FindAllWithDefects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects report: %w", err)
	}

	now := s.now()
	reports := make([]dto.ProjectReport, 0, len(projects))
	for _, p := range projects {
		r := dto.ProjectReport{ProjectID: p.ID, ProjectName: p.Name, TotalDefects: len(p.Defects)}
		for _, d := range p.Defects {
			switch d.Status {
			case models.DefectStatusNew:
				r.NewDefects++
			case models.DefectStatusInProgress:
				r.InProgress++
			case models.DefectStatusClosed:
				r.ClosedDefects++
			}
			if d.IsOverdue(now) {
				r.OverdueDefects++
			}
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Statistics aggregates every defect by status, priority and month of the current year
func (s *ReportService) Statistics(ctx context.Context) (*dto.Statistics, error) {
	defects, err := s.defects.FindSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load defects: %w", err)
	}
	projects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	now := s.now()
	stats := &dto.Statistics{
		TotalProjects:     projects,
		TotalDefects:      int64(len(defects)),
		DefectsByStatus:   map[string]int{},
		DefectsByPriority: map[string]int{},
		DefectsByMonth:    map[int]int{},
	}
	for _, d := range defects {
		stats.DefectsByStatus[string(d.Status)]++
		stats.DefectsByPriority[string(d.Priority)]++
		created := d.CreatedAt.In(now.Location())
		if created.Year() == now.Year() {
			stats.DefectsByMonth[int(created.Month())]++
		}
	}
	stats.AverageResolutionDays = averageResolutionDays(defects, now)
	return stats, nil
}

// averageResolutionDays is the mean age in days of closed defects. Closing time is
// not recorded, so the age at the moment of the report stands in for it.
func averageResolutionDays(defects []models.Defect, now time.Time) *float64 {
	var total time.Duration
	var n int
	for _, d := range defects {
		if d.Status != models.DefectStatusClosed || d.CreatedAt.IsZero() {
			continue
		}
		total += now.UTC().Sub(d.CreatedAt.UTC())
		n++
	}
	if n == 0 {
		return nil
	}
	days := total.Hours() / 24 / float64(n)
	return &days
}

// Dashboard summarizes projects and defects for the landing page
func (s *ReportService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	projects, err := s.projects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	total, err := s.defects.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count defects: %w", err)
	}
	open, err := s.defects.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open defects: %w", err)
	}
	recent, err := s.defects.FindRecent(ctx, RecentDefectsLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent defects: %w", err)
	}

	return &dto.Dashboard{
		TotalProjects: projects,
		TotalDefects:  total,
		OpenDefects:   open,
		RecentDefects: recent,
	}, nil
}
