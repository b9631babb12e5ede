package tryon

import "time"

// Mode selects the body region the provider renders against.
type Mode string

const (
	ModeFace Mode = "face"
	ModeHead Mode = "head"
)

// Valid reports whether the mode is supported.
func (m Mode) Valid() bool {
	return m == ModeFace || m == ModeHead
}

// Status tracks the lifecycle of a try-on session. A session is created as
// StatusProcessing and receives exactly one terminal update to
// StatusCompleted or StatusFailed; it never re-enters processing.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session records one try-on request/response lifecycle tied to a product.
type Session struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Mode           Mode      `json:"mode"`
	SourceImageURL string    `json:"source_image_url,omitempty"`
	Status         Status    `json:"status"`
	ResultURL      string    `json:"result_url,omitempty"`
	Message        string    `json:"message,omitempty"`
	ApiKeyID       string    `json:"api_key_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
