package models

import (
	"time"
)

// MaxCommentLength is the longest comment text accepted
const MaxCommentLength = 1000

// DefectComment represents a discussion entry on a defect
type DefectComment struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Text      string     `json:"text" gorm:"size:1000;not null"`
	CreatedAt time.Time  `json:"createdAt" gorm:"not null"`
	UpdatedAt *time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
	DefectID  uint       `json:"defectId" gorm:"not null;index"`
	AuthorID  string     `json:"authorId" gorm:"size:36;not null;index"`

	// Relations
	Author      *User               `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Attachments []CommentAttachment `json:"attachments,omitempty" gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for DefectComment model
func (DefectComment) TableName() string {
	return "defect_comments"
}
