package model

import (
	"time"

	"gorm.io/datatypes"
)

// Exception is a system-level failure persisted for auditing.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "exit_engine"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "pool_state"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "Upsert"

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // debug | info | warn | error | fatal

	// Extra context stored as JSON (optional)
	Context datatypes.JSON `gorm:"type:jsonb" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
