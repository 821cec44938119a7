package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
)

// Bill represents a confirmed invoice for data transfer between layers.
type Bill struct {
	ID        uuid.UUID            `json:"id"`
	Source    constants.SourceKind `json:"source"`
	CreatedAt time.Time            `json:"created_at"`
	InvoiceRecord
}
