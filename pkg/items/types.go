package items

import (
	"slices"
	"time"
)

// Variant discriminates the rows that share the item table shape.
type Variant string

const (
	VariantPage     Variant = "page"
	VariantItem     Variant = "item"
	VariantRevision Variant = "revision"
	VariantMirror   Variant = "second_category"
)

// Status represents the publication state of an item row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
)

// Item is a single (language, variant) row of a logical content unit.
type Item struct {
	ID         int64          `json:"id"`
	SourceID   int64          `json:"source_id"`
	Language   string         `json:"language"`
	Variant    Variant        `json:"type"`
	CategoryID int64          `json:"category_id"`
	RootID     int64          `json:"root_id"`
	Title      string         `json:"title"`
	Slug       string         `json:"slug"`
	Status     Status         `json:"status"`
	Priority   int            `json:"priority"`
	PublishAt  *time.Time     `json:"publish_at,omitempty"`
	ExpireAt   *time.Time     `json:"expire_at,omitempty"`
	UserID     *int64         `json:"user_id,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Locked     bool           `json:"locked"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.PublishAt != nil {
		t := *i.PublishAt
		c.PublishAt = &t
	}
	if i.ExpireAt != nil {
		t := *i.ExpireAt
		c.ExpireAt = &t
	}
	if i.UserID != nil {
		u := *i.UserID
		c.UserID = &u
	}
	if i.Fields != nil {
		c.Fields = make(map[string]any, len(i.Fields))
		for k, v := range i.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// IsPending reports whether the item waits for moderation.
func (i *Item) IsPending() bool {
	return i.Status == StatusPending
}

// IsExpired reports whether the item's expiry date has passed.
func (i *Item) IsExpired(now time.Time) bool {
	return i.ExpireAt != nil && !i.ExpireAt.After(now)
}

// IsActive reports whether the item is publicly visible at now. Items
// scheduled in the future only count as active when allowFuture is set.
func (i *Item) IsActive(now time.Time, allowFuture bool) bool {
	if i.Status != StatusActive || i.IsExpired(now) {
		return false
	}
	if !allowFuture && i.PublishAt != nil && i.PublishAt.After(now) {
		return false
	}
	return true
}

// Category is the placement of an item in the external category tree.
type Category struct {
	ID           int64  `json:"id"`
	RootID       int64  `json:"root_id"`
	Slug         string `json:"slug"`
	Multilingual bool   `json:"multilingual"`
	Active       bool   `json:"active"`
	// Grants maps a category permission to the roles holding it.
	Grants map[string][]string `json:"grants,omitempty"`
}

// Root returns the identifier of the top-level ancestor.
func (c *Category) Root() int64 {
	if c.RootID == 0 {
		return c.ID
	}
	return c.RootID
}

// Can reports whether the category grants permission to the user.
func (c *Category) Can(u *User, permission string) bool {
	if u == nil {
		return false
	}
	if u.IsSuper() {
		return true
	}
	for _, role := range c.Grants[permission] {
		if slices.Contains(u.Roles, role) {
			return true
		}
	}
	return false
}

// User is the authenticated party performing a write.
type User struct {
	ID          int64    `json:"id"`
	Super       bool     `json:"super"`
	Permissions []string `json:"permissions,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

func (u *User) IsSuper() bool {
	return u != nil && u.Super
}

// Can reports whether the user holds a global permission.
func (u *User) Can(permission string) bool {
	if u == nil {
		return false
	}
	return u.Super || slices.Contains(u.Permissions, permission)
}

// Actor carries the request scope of a repository call: who is acting and
// which language the request is served in.
type Actor struct {
	User     *User
	Language string
}

func (a Actor) Authenticated() bool {
	return a.User != nil
}

func (a Actor) userID() *int64 {
	if a.User == nil {
		return nil
	}
	id := a.User.ID
	return &id
}

// Language is a configured content language.
type Language struct {
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// MirrorSettings configures second category mirroring.
type MirrorSettings struct {
	Enabled bool
	// Max caps the number of mirrors written per language.
	Max int
	// CustomFields lists the custom fields copied onto mirror rows.
	CustomFields []string
}

// Settings holds the configuration consumed by the service.
type Settings struct {
	SEOURL           bool
	SEOURLWithID     bool
	AllowFutureItems bool
	AutoPendingItems bool
	PagesRootSlug    string
	PerPage          int
	PaginationOrder  string
	Mirror           MirrorSettings
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		PagesRootSlug:   "pages",
		PerPage:         20,
		PaginationOrder: "priority ASC, created_at DESC",
		Mirror: MirrorSettings{
			Max: 5,
		},
	}
}

// Page is one page of a paginated listing.
type Page struct {
	Items   []*Item `json:"items"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// TotalPages returns the number of pages of the listing.
func (p *Page) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
