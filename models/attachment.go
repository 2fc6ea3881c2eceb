package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// DefectAttachment represents a file uploaded against a defect
type DefectAttachment struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	FileName         string    `json:"fileName" gorm:"size:255;not null"`
	OriginalFileName string    `json:"originalFileName" gorm:"size:255;not null"`
	FilePath         string    `json:"filePath" gorm:"size:500;not null"`
	ContentType      string    `json:"contentType" gorm:"size:100;not null"`
	FileSize         int64     `json:"fileSize"`
	Description      *string   `json:"description" gorm:"size:500"`
	UploadedAt       time.Time `json:"uploadedAt" gorm:"not null"`
	DefectID         uint      `json:"defectId" gorm:"not null;index"`
	UploadedByID     string    `json:"uploadedById" gorm:"size:36;not null;index"`

	UploadedBy *User `json:"uploadedBy,omitempty" gorm:"foreignKey:UploadedByID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for DefectAttachment model
func (DefectAttachment) TableName() string {
	return "defect_attachments"
}

// FormattedFileSize renders the size with the largest fitting unit
func (a DefectAttachment) FormattedFileSize() string {
	return FormatFileSize(a.FileSize)
}

// MarshalJSON adds formattedFileSize to the stored fields
func (a DefectAttachment) MarshalJSON() ([]byte, error) {
	type plain DefectAttachment
	return json.Marshal(struct {
		plain
		FormattedFileSize string `json:"formattedFileSize"`
	}{plain(a), a.FormattedFileSize()})
}

// CommentAttachment represents a file uploaded with a comment
type CommentAttachment struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	FileName         string    `json:"fileName" gorm:"size:255;not null"`
	OriginalFileName string    `json:"originalFileName" gorm:"size:255;not null"`
	FilePath         string    `json:"filePath" gorm:"size:500;not null"`
	ContentType      string    `json:"contentType" gorm:"size:100;not null"`
	FileSize         int64     `json:"fileSize"`
	Description      *string   `json:"description" gorm:"size:500"`
	UploadedAt       time.Time `json:"uploadedAt" gorm:"not null"`
	CommentID        uint      `json:"commentId" gorm:"not null;index"`
	UploadedByID     string    `json:"uploadedById" gorm:"size:36;not null;index"`

	UploadedBy *User `json:"uploadedBy,omitempty" gorm:"foreignKey:UploadedByID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for CommentAttachment model
func (CommentAttachment) TableName() string {
	return "comment_attachments"
}

// FormattedFileSize renders the size with the largest fitting unit
func (a CommentAttachment) FormattedFileSize() string {
	return FormatFileSize(a.FileSize)
}

func (a CommentAttachment) MarshalJSON() ([]byte, error) {
	type plain CommentAttachment
	return json.Marshal(struct {
		plain
		FormattedFileSize string `json:"formattedFileSize"`
	}{plain(a), a.FormattedFileSize()})
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count as B, KB, MB or GB with at most two decimals
func FormatFileSize(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return trimDecimals(value) + " " + sizeUnits[unit]
}

func trimDecimals(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
