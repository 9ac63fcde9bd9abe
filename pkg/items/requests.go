package items

import "time"

// Request/Response DTOs

// Payload is the per-language part of a write.
type Payload struct {
	Title     string     `json:"title" validate:"max=255"`
	Slug      string     `json:"slug,omitempty" validate:"omitempty,max=255"`
	Status    Status     `json:"status,omitempty" validate:"omitempty,oneof=pending active rejected deleted"`
	Priority  int        `json:"priority" validate:"gte=0"`
	PublishAt *time.Time `json:"publish_at,omitempty"`
	ExpireAt  *time.Time `json:"expire_at,omitempty"`
	// DisableExpireAt clears any expiry date.
	DisableExpireAt bool           `json:"disable_expire_at,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
}

// HasContent reports whether the payload should produce a row.
func (p Payload) HasContent() bool {
	return p.Title != ""
}

// CreateRequest contains parameters for creating an item in every language
// that has a title.
type CreateRequest struct {
	CategoryID       int64              `json:"category_id" validate:"required,gt=0"`
	Languages        map[string]Payload `json:"languages" validate:"required,min=1,dive,keys,required,endkeys"`
	SecondCategories []int64            `json:"second_category_ids,omitempty"`
}

// UpdateRequest contains parameters for updating an existing item. A zero
// CategoryID keeps the current placement.
type UpdateRequest struct {
	CategoryID       int64              `json:"category_id,omitempty" validate:"gte=0"`
	Languages        map[string]Payload `json:"languages" validate:"required,min=1,dive,keys,required,endkeys"`
	SecondCategories []int64            `json:"second_category_ids,omitempty"`
	// RestoredFromRevision marks an update replaying a revision. No new
	// revision is captured and validation failures are tolerated.
	RestoredFromRevision bool `json:"restored_from_revision,omitempty"`
}

// PageQuery contains parameters for paginated listings.
type PageQuery struct {
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	Language string         `json:"language,omitempty"`
	Where    map[string]any `json:"where,omitempty"`
	// Sort and Direction override the configured ordering when Sort names a
	// sortable column.
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// ExportQuery contains parameters for bulk export.
type ExportQuery struct {
	CategoryID int64          `json:"category_id" validate:"required,gt=0"`
	Language   string         `json:"language,omitempty"`
	FromDate   *time.Time     `json:"from_date,omitempty"`
	ToDate     *time.Time     `json:"to_date,omitempty"`
	Where      map[string]any `json:"where,omitempty"`
}
