package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/constants"
)

// LogbookFile represents an uploaded logbook export for data transfer
// between layers.
type LogbookFile struct {
	ID          uuid.UUID              `json:"id"`
	ProfileID   uuid.UUID              `json:"profile_id"`
	Filename    string                 `json:"filename"`
	FileExt     string                 `json:"file_ext"`
	FileSize    int                    `json:"file_size"`
	ContentHash []byte                 `json:"content_hash"`
	BlobPath    *string                `json:"blob_path,omitempty"`
	Status      constants.IngestStatus `json:"status"`
	UploadedAt  time.Time              `json:"uploaded_at"`
}
