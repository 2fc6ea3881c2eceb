package services

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/lib/messaging"
	"github.com/defect-tracker/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateDefect_ForcesStatusCreatorAndTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "engineer@example.com", models.RoleEngineer)
	other := f.user(t, "other@example.com")
	p := f.project(t, "Tower")

	d, err := f.defects.CreateDefect(ctx, caller, dto.CreateDefectRequest{
		Title:      "  Crack in wall  ",
		ProjectID:  p.ID,
		AssigneeID: &other.UserID,
		DueDate:    "2024-04-01",
	}, nil)
	require.NoError(t, err)

	stored, err := f.defects.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crack in wall", stored.Title)
	assert.Equal(t, models.DefectStatusNew, stored.Status)
	assert.Equal(t, models.DefectPriorityMedium, stored.Priority)
	require.NotNil(t, stored.CreatorID)
	assert.Equal(t, caller.UserID, *stored.CreatorID)
	require.NotNil(t, stored.AssigneeID)
	assert.Equal(t, other.UserID, *stored.AssigneeID)
	assert.True(t, fixedNow.Equal(stored.CreatedAt.UTC()))
	require.NotNil(t, stored.DueDate)
	assert.Equal(t, "2024-04-01", time.Time(*stored.DueDate).Format("2006-01-02"))

	f.events.AssertCalled(t, "PublishJSON", mock.Anything, messaging.DefectCreated, mock.Anything)
}

func TestCreateDefect_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "engineer@example.com")
	p := f.project(t, "Tower")

	tests := []struct {
		name  string
		req   dto.CreateDefectRequest
		field string
	}{
		{"missing title", dto.CreateDefectRequest{Title: " ", ProjectID: p.ID}, "title"},
		{"missing project", dto.CreateDefectRequest{Title: "A"}, "projectId"},
		{"unknown project", dto.CreateDefectRequest{Title: "A", ProjectID: 999}, "projectId"},
		{"unknown assignee", dto.CreateDefectRequest{Title: "A", ProjectID: p.ID, AssigneeID: ptr("nobody")}, "assigneeId"},
		{"bad due date", dto.CreateDefectRequest{Title: "A", ProjectID: p.ID, DueDate: "01/02/2024"}, "dueDate"},
		{"unknown priority", dto.CreateDefectRequest{Title: "A", ProjectID: p.ID, Priority: "Urgent"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.defects.CreateDefect(ctx, caller, tt.req, nil)
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}

	all, err := f.defects.ListDefects(ctx, dto.DefectFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateDefect_StoresAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "engineer@example.com")
	p := f.project(t, "Tower")

	files := []*multipart.FileHeader{
		upload(t, "photo.jpg", []byte("jpeg")),
		upload(t, "empty.txt", nil),
	}
	d, err := f.defects.CreateDefect(ctx, caller, dto.CreateDefectRequest{Title: "Leak", ProjectID: p.ID}, files)
	require.NoError(t, err)

	stored, err := f.defects.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, stored.Attachments, 1)
	a := stored.Attachments[0]
	assert.Equal(t, "photo.jpg", a.OriginalFileName)
	assert.Equal(t, caller.UserID, a.UploadedByID)
	assert.EqualValues(t, 4, a.FileSize)

	ok, err := afero.Exists(f.fs, a.FilePath)
	require.NoError(t, err)
	assert.True(t, ok)

	content, err := f.defects.OpenDefectAttachment(ctx, d.ID, a.ID)
	require.NoError(t, err)
	defer content.Body.Close()
	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "photo.jpg", content.Name)

	_, err = f.defects.OpenDefectAttachment(ctx, d.ID+1, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDefects_FiltersIntersect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alpha := f.project(t, "Alpha")
	beta := f.project(t, "Beta")

	d1 := f.defect(t, models.Defect{Title: "Broken window", ProjectID: alpha.ID, Priority: models.DefectPriorityHigh})
	d2 := f.defect(t, models.Defect{Title: "Door", Description: "window frame scratched", ProjectID: beta.ID, Status: models.DefectStatusClosed})
	d3 := f.defect(t, models.Defect{Title: "Paint", ProjectID: alpha.ID, Status: models.DefectStatusClosed, Priority: models.DefectPriorityHigh})

	tests := []struct {
		name   string
		filter dto.DefectFilter
		want   []uint
	}{
		{"empty filter", dto.DefectFilter{}, []uint{d1.ID, d2.ID, d3.ID}},
		{"search title or description", dto.DefectFilter{Search: "WINDOW"}, []uint{d1.ID, d2.ID}},
		{"status", dto.DefectFilter{Status: "Closed"}, []uint{d2.ID, d3.ID}},
		{"project", dto.DefectFilter{ProjectID: alpha.ID}, []uint{d1.ID, d3.ID}},
		{"priority and status", dto.DefectFilter{Status: "Closed", Priority: "High"}, []uint{d3.ID}},
		{"search and project", dto.DefectFilter{Search: "window", ProjectID: beta.ID}, []uint{d2.ID}},
		{"unknown status ignored", dto.DefectFilter{Status: "Bogus"}, []uint{d1.ID, d2.ID, d3.ID}},
		{"no match", dto.DefectFilter{Search: "roof"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.defects.ListDefects(ctx, tt.filter)
			require.NoError(t, err)
			var ids []uint
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestUpdateDefect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "creator@example.com")
	p := f.project(t, "Tower")
	created := fixedNow.Add(-48 * time.Hour)
	d := f.defect(t, models.Defect{Title: "Old", ProjectID: p.ID, CreatorID: &creator.UserID, CreatedAt: created})

	updated, err := f.defects.UpdateDefect(ctx, d.ID, dto.UpdateDefectRequest{
		Title:     "New title",
		Status:    "OnReview",
		Priority:  "Low",
		ProjectID: p.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, models.DefectStatusOnReview, updated.Status)
	assert.Equal(t, models.DefectPriorityLow, updated.Priority)
	assert.True(t, created.Equal(updated.CreatedAt.UTC()))
	require.NotNil(t, updated.CreatorID)
	assert.Equal(t, creator.UserID, *updated.CreatorID)

	_, err = f.defects.UpdateDefect(ctx, 999, dto.UpdateDefectRequest{Title: "X", Status: "New", Priority: "Low", ProjectID: p.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.defects.UpdateDefect(ctx, d.ID, dto.UpdateDefectRequest{Title: "X", Status: "Done", Priority: "Low", ProjectID: p.ID})
	var verrs ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestUpdateDefect_RowChangedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Tower")
	d := f.defect(t, models.Defect{Title: "Old", ProjectID: p.ID})

	// another writer got there first: the row exists but this update matched nothing
	require.NoError(t, f.db.Callback().Update().After("gorm:update").Register("test:lost_update", func(db *gorm.DB) {
		if db.Statement.Table == "defects" {
			db.RowsAffected = 0
		}
	}))

	_, err := f.defects.UpdateDefect(ctx, d.ID, dto.UpdateDefectRequest{Title: "Mine", Status: "New", Priority: "Low", ProjectID: p.ID})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "manager@example.com", models.RoleManager)
	p := f.project(t, "Tower")
	d := f.defect(t, models.Defect{Title: "A", ProjectID: p.ID, Status: models.DefectStatusClosed})

	t.Run("any status may follow any other", func(t *testing.T) {
		got, err := f.defects.ChangeStatus(ctx, caller, d.ID, "New")
		require.NoError(t, err)
		assert.Equal(t, models.DefectStatusNew, got.Status)
		f.events.AssertCalled(t, "PublishJSON", mock.Anything, messaging.DefectStatusChanged, mock.Anything)
	})

	t.Run("missing defect is not found and nothing changes", func(t *testing.T) {
		_, err := f.defects.ChangeStatus(ctx, caller, d.ID+100, "Closed")
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := f.defects.ListDefects(ctx, dto.DefectFilter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, models.DefectStatusNew, all[0].Status)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := f.defects.ChangeStatus(ctx, caller, d.ID, "Reopened")
		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "status", verrs[0].Field)
	})
}

func TestDeleteDefect_RemovesRowsAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "engineer@example.com")
	p := f.project(t, "Tower")

	d, err := f.defects.CreateDefect(ctx, caller, dto.CreateDefectRequest{Title: "Leak", ProjectID: p.ID},
		[]*multipart.FileHeader{upload(t, "a.txt", []byte("a"))})
	require.NoError(t, err)
	c, err := f.defects.AddComment(ctx, caller, d.ID, "see photo", []*multipart.FileHeader{upload(t, "b.txt", []byte("b"))})
	require.NoError(t, err)
	require.Len(t, c.Attachments, 1)

	stored, err := f.defects.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	paths := []string{stored.Attachments[0].FilePath, c.Attachments[0].FilePath}

	require.NoError(t, f.defects.DeleteDefect(ctx, d.ID))

	_, err = f.defects.GetDefect(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, p := range paths {
		ok, err := afero.Exists(f.fs, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}

	assert.ErrorIs(t, f.defects.DeleteDefect(ctx, d.ID), ErrNotFound)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.user(t, "viewer@example.com", models.RoleViewer)
	p := f.project(t, "Tower")
	d := f.defect(t, models.Defect{Title: "A", ProjectID: p.ID})

	t.Run("blank text is ignored", func(t *testing.T) {
		c, err := f.defects.AddComment(ctx, viewer, d.ID, "   ", nil)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := f.defects.AddComment(ctx, viewer, d.ID, strings.Repeat("x", models.MaxCommentLength+1), nil)
		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "text", verrs[0].Field)
	})

	t.Run("exactly the limit", func(t *testing.T) {
		c, err := f.defects.AddComment(ctx, viewer, d.ID, strings.Repeat("ж", models.MaxCommentLength), nil)
		require.NoError(t, err)
		assert.NotZero(t, c.ID)
	})

	t.Run("missing defect", func(t *testing.T) {
		_, err := f.defects.AddComment(ctx, viewer, d.ID+1, "hello", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stamps author", func(t *testing.T) {
		c, err := f.defects.AddComment(ctx, viewer, d.ID, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, viewer.UserID, c.AuthorID)
		assert.True(t, fixedNow.Equal(c.CreatedAt))
		f.events.AssertCalled(t, "PublishJSON", mock.Anything, messaging.DefectCommented, mock.Anything)
	})

	stored, err := f.defects.GetDefect(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comments, 2)
}

func TestEditComment_AuthorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author@example.com", models.RoleEngineer)
	stranger := f.user(t, "stranger@example.com", models.RoleEngineer)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	p := f.project(t, "Tower")
	d := f.defect(t, models.Defect{Title: "A", ProjectID: p.ID})

	c, err := f.defects.AddComment(ctx, author, d.ID, "first", nil)
	require.NoError(t, err)

	_, err = f.defects.EditComment(ctx, stranger, d.ID, c.ID, "hijack")
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := f.defects.EditComment(ctx, author, d.ID, c.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Text)
	require.NotNil(t, edited.UpdatedAt)

	edited, err = f.defects.EditComment(ctx, admin, d.ID, c.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", edited.Text)

	_, err = f.defects.EditComment(ctx, author, d.ID+1, c.ID, "elsewhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	failing := &mockPublisher{}
	failing.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.defects.events = failing

	caller := f.user(t, "engineer@example.com")
	p := f.project(t, "Tower")
	_, err := f.defects.CreateDefect(context.Background(), caller, dto.CreateDefectRequest{Title: "A", ProjectID: p.ID}, nil)
	assert.NoError(t, err)
	failing.AssertNumberOfCalls(t, "PublishJSON", 1)
}
