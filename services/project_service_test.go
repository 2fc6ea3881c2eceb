package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		req       dto.ProjectRequest
		wantField string
		wantStart string
	}{
		{"start defaults to today", dto.ProjectRequest{Name: "Tower"}, "", "2024-03-15"},
		{"explicit dates", dto.ProjectRequest{Name: "Bridge", StartDate: "2024-01-01", EndDate: "2024-12-31"}, "", "2024-01-01"},
		{"missing name", dto.ProjectRequest{Name: " "}, "name", ""},
		{"end before start", dto.ProjectRequest{Name: "Tunnel", StartDate: "2024-05-01", EndDate: "2024-04-01"}, "endDate", ""},
		{"malformed date", dto.ProjectRequest{Name: "Tunnel", StartDate: "May 1"}, "startDate", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.projects.CreateProject(ctx, tt.req)
			if tt.wantField != "" {
				var verrs ValidationErrors
				require.True(t, errors.As(err, &verrs), "got %v", err)
				assert.Equal(t, tt.wantField, verrs[0].Field)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, p.ID)
			assert.Equal(t, tt.wantStart, time.Time(p.StartDate).Format("2006-01-02"))
		})
	}

	all, err := f.projects.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bridge", all[0].Name)
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Tower")

	updated, err := f.projects.UpdateProject(ctx, p.ID, dto.ProjectRequest{Name: "Tower B", Description: "east wing"})
	require.NoError(t, err)
	assert.Equal(t, "Tower B", updated.Name)

	got, err := f.projects.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "east wing", got.Description)

	_, err = f.projects.UpdateProject(ctx, p.ID+10, dto.ProjectRequest{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	busy := f.project(t, "Busy")
	idle := f.project(t, "Idle")
	f.defect(t, models.Defect{Title: "A", ProjectID: busy.ID})

	err := f.projects.DeleteProject(ctx, busy.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.projects.GetProject(ctx, busy.ID)
	assert.NoError(t, err)

	require.NoError(t, f.projects.DeleteProject(ctx, idle.ID))
	_, err = f.projects.GetProject(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.projects.DeleteProject(ctx, idle.ID), ErrNotFound)
}
