package models

import (
	"gorm.io/datatypes"
)

// Project represents a product or initiative that defects are filed against
type Project struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	StartDate   datatypes.Date  `json:"startDate" gorm:"not null"`
	EndDate     *datatypes.Date `json:"endDate"`

	// Relations
	Defects []Defect `json:"defects,omitempty" gorm:"foreignKey:ProjectID"`
}

// TableName sets the table name for Project model
func (Project) TableName() string {
	return "projects"
}
