package v1

import (
	"context"
	"net/http"

	"github.com/defect-tracker/dto"
	"github.com/gin-gonic/gin"
)

// ReportService produces reports, statistics and exports
type ReportService interface {
	DefectsReport(ctx context.Context) (*dto.DefectsReport, error)
	ExportDefects(ctx context.Context, format string) (*dto.ReportFile, error)
	ProjectsReport(ctx context.Context) ([]dto.ProjectReport, error)
	Statistics(ctx context.Context) (*dto.Statistics, error)
	Dashboard(ctx context.Context) (*dto.Dashboard, error)
}

// ReportHandler serves /reports and /dashboard
type ReportHandler struct {
	reports ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

var reportIndex = []dto.ReportLink{
	{Name: "defects", Path: "/reports/defects", Description: "All defects newest first with status totals; exportType=csv|excel downloads them"},
	{Name: "projects", Path: "/reports/projects", Description: "Defect counts per project, including overdue ones"},
	{Name: "statistics", Path: "/reports/statistics", Description: "Defects by status, priority and month, average resolution time"},
}

// Index lists the available reports
func (h *ReportHandler) Index(c *gin.Context) {
	respondOK(c, http.StatusOK, reportIndex)
}

// Defects returns every defect newest first with status totals. With an exportType
// query parameter (csv or excel) the same report is downloaded as a file instead.
func (h *ReportHandler) Defects(c *gin.Context) {
	if format, ok := c.GetQuery("exportType"); ok {
		h.export(c, format)
		return
	}

	report, err := h.reports.DefectsReport(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to build defects report", err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

func (h *ReportHandler) export(c *gin.Context, format string) {
	file, err := h.reports.ExportDefects(c.Request.Context(), format)
	if err != nil {
		respondError(c, "Failed to export defects", err)
		return
	}

	c.Header("Content-Disposition", attachmentDisposition(file.FileName))
	c.Data(http.StatusOK, file.ContentType+"; charset=utf-8", file.Content)
}

// Projects returns defect counts per project
func (h *ReportHandler) Projects(c *gin.Context) {
	report, err := h.reports.ProjectsReport(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to build projects report", err)
		return
	}
	respondOK(c, http.StatusOK, report)
}

// Statistics returns aggregate defect statistics
func (h *ReportHandler) Statistics(c *gin.Context) {
	stats, err := h.reports.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to build statistics", err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

// Dashboard returns the landing page summary
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dash, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to build dashboard", err)
		return
	}
	respondOK(c, http.StatusOK, dash)
}
