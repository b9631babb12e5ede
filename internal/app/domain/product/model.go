package product

import "time"

// Type identifies the wearable category of a catalog entry.
type Type string

const (
	TypeEyewear Type = "eyewear"
	TypeHeadset Type = "headset"
	TypeHat     Type = "hat"
	TypeJewelry Type = "jewelry"
)

// Valid reports whether the type is a known category.
func (t Type) Valid() bool {
	switch t {
	case TypeEyewear, TypeHeadset, TypeHat, TypeJewelry:
		return true
	}
	return false
}

// Product is a catalog entry available for try-on sessions. Products are
// not organization-scoped.
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SKU          string    `json:"sku,omitempty"`
	Type         Type      `json:"type"`
	ModelURL     string    `json:"model_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
