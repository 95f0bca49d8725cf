package store

import "time"

// MediaType classifies an attachment by its MIME prefix.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// MediaOrigin records when an attachment entered the system: with the
// original submission, or later when staff closed the complaint.
type MediaOrigin string

const (
	OriginSubmission MediaOrigin = "submission"
	OriginCompleted  MediaOrigin = "completed"
)

// MediaItem is one attachment on a complaint. StorageKey identifies the
// stored object for deletion; empty for URLs the API does not manage.
type MediaItem struct {
	URL        string      `json:"url"`
	Type       MediaType   `json:"type"`
	Origin     MediaOrigin `json:"origin,omitempty"`
	StorageKey string      `json:"storageKey,omitempty"`
}

// Complaint is one citizen complaint, the canonical row in requests.
// Approved is tri-state: nil means no decision yet.
type Complaint struct {
	ID           int64
	Name         string
	Phone        string
	Address      string
	Category     string
	Message      string
	Latitude     *float64
	Longitude    *float64
	Media        []MediaItem
	Department   string
	Status       string
	Approved     *bool
	Processed    bool
	RejectReason string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// BucketRow is a denormalized copy of a Complaint living in one of the
// three status bucket tables, keyed by OriginalID.
type BucketRow struct {
	Complaint
	OriginalID int64
	CopiedAt   time.Time
}

// LoginEvent records a citizen identifying themselves on the tracking page.
type LoginEvent struct {
	ID        int64
	Phone     string
	CreatedAt time.Time
}
