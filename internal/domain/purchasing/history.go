package purchasing

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistory is one audit entry. Entries are append-only.
type StatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    Status
	Note      string
	ChangedBy string
	ChangedAt time.Time
}

// Attachment is document metadata attached to an order. Content is stored elsewhere.
type Attachment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	Description string
	UploadedBy  string
	UploadedAt  time.Time
}

// AttachmentInput describes a new attachment
type AttachmentInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Description string
}
