package models

import (
	"fmt"

	"gorm.io/gorm"
)

type House struct {
	gorm.Model
	Name     string `gorm:"uniqueIndex" json:"name"`
	Number   int    `json:"number"`
	SheetGID string `json:"sheet_gid"`
}

// Label is the street address shown in the page footer.
func (h House) Label() string {
	return fmt.Sprintf("Pilotvej %d", h.Number)
}
