package model

import (
	"time"
)

// InventoryItem is one blood group's stock at one hospital
type InventoryItem struct {
	HospitalID string    `json:"hospital_id" db:"hospital_id"`
	BloodGroup string    `json:"blood_group" db:"blood_group"`
	Units      int       `json:"units" db:"units"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// InventoryUpdate sets the absolute unit count for one blood group
type InventoryUpdate struct {
	BloodGroup string `json:"blood_group" binding:"required,bloodgroup"`
	Units      int    `json:"units" binding:"min=0"`
}

// InventoryResponse is a hospital's full stock, one entry per blood group
type InventoryResponse struct {
	HospitalID string          `json:"hospital_id"`
	Items      []InventoryItem `json:"items"`
}
