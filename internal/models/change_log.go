package models

import (
	"gorm.io/gorm"
)

const (
	ChangeParticipation = "participation"
	ChangeSchedule      = "schedule"
	ChangeExpense       = "expense"
)

// ChangeLog records one successful write to the spreadsheet.
type ChangeLog struct {
	gorm.Model
	ChangeID string `gorm:"uniqueIndex" json:"change_id"`
	Kind     string `gorm:"index" json:"kind"`
	House    string `gorm:"index" json:"house"`
	Row      int    `json:"row"`
	Range    string `json:"range"`
	Values   string `json:"values"`
}
