package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// OwnerInfo is the embedded owner object some API routes populate
type OwnerInfo struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// OwnerRef is either a bare owner identifier or an embedded owner object.
// The API is not consistent about which one it sends.
type OwnerRef struct {
	id       string
	embedded *OwnerInfo
}

// OwnerID builds an identifier-only reference.
func OwnerID(id string) OwnerRef {
	return OwnerRef{id: id}
}

// EmbeddedOwner builds a reference carrying the full owner object.
func EmbeddedOwner(info OwnerInfo) OwnerRef {
	return OwnerRef{id: info.ID, embedded: &info}
}

// ID returns the owner identifier regardless of the wire shape.
func (o OwnerRef) ID() string {
	return o.id
}

// Embedded returns the owner object when the API sent one.
func (o OwnerRef) Embedded() (OwnerInfo, bool) {
	if o.embedded == nil {
		return OwnerInfo{}, false
	}
	return *o.embedded, true
}

// IsZero reports whether no owner was present.
func (o OwnerRef) IsZero() bool {
	return o.id == "" && o.embedded == nil
}

// Name returns the owner's username, or "" when only an identifier is known.
func (o OwnerRef) Name() string {
	if o.embedded == nil {
		return ""
	}
	return o.embedded.Username
}

// UnmarshalJSON decodes a string identifier or an owner object.
func (o *OwnerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = OwnerRef{}
		return nil
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*o = OwnerID(id)
		return nil
	case '{':
		var raw struct {
			OwnerInfo
			AltID string `json:"id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		info := raw.OwnerInfo
		if info.ID == "" {
			info.ID = raw.AltID
		}
		*o = EmbeddedOwner(info)
		return nil
	default:
		return fmt.Errorf("owner: unsupported JSON value %q", data)
	}
}

// MarshalJSON writes the same shape that was read.
func (o OwnerRef) MarshalJSON() ([]byte, error) {
	if o.embedded != nil {
		return json.Marshal(o.embedded)
	}
	if o.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(o.id)
}

// Listing is the read-only projection of a rental listing
type Listing struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Owner       OwnerRef  `json:"owner"`
	IsAvailable *bool     `json:"isAvailable,omitempty"`
	MaxGuests   int       `json:"maxGuests,omitempty"`
	Bedrooms    int       `json:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty"`
	Amenities   []string  `json:"amenities,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts "id" for "_id" and a single "image" field for "images".
func (l *Listing) UnmarshalJSON(data []byte) error {
	type alias Listing
	var raw struct {
		alias
		AltID string `json:"id"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Listing(raw.alias)
	if l.ID == "" {
		l.ID = raw.AltID
	}
	if len(l.Images) == 0 && raw.Image != "" {
		l.Images = []string{raw.Image}
	}
	return nil
}

// Cover returns the first image URL, or "" when the listing has none.
func (l *Listing) Cover() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// Unavailable reports whether the API explicitly marked the listing unavailable
func (l *Listing) Unavailable() bool {
	return l.IsAvailable != nil && !*l.IsAvailable
}

// OwnedBy reports whether the listing belongs to the given user id.
func (l *Listing) OwnedBy(userID string) bool {
	return userID != "" && l.Owner.ID() == userID
}

// ListingDraft is the create payload sent to the API. Images hold URLs
// returned by the blob store, never file bytes.
type ListingDraft struct {
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"required,min=10"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Location    string   `json:"location" validate:"required"`
	Category    string   `json:"category,omitempty"`
	Images      []string `json:"images"`
	Amenities   []string `json:"amenities,omitempty"`
	MaxGuests   int      `json:"maxGuests,omitempty" validate:"gte=0"`
	Bedrooms    int      `json:"bedrooms,omitempty" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms,omitempty" validate:"gte=0"`
}
