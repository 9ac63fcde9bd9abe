package items

import "fmt"

// CanonicalVariants are the variants that form the live row of a language.
var CanonicalVariants = []Variant{VariantPage, VariantItem}

// ListedVariants are the variants shown in category listings and exports.
var ListedVariants = []Variant{VariantPage, VariantItem, VariantMirror}

// Canonical reports whether rows of this variant are live language rows.
func (v Variant) Canonical() bool {
	return v == VariantPage || v == VariantItem
}

// Lockable reports whether rows of this variant are protected against
// direct writes.
func (v Variant) Lockable() bool {
	return v == VariantMirror
}

// Syncable reports whether rows of this variant may own mirrors and
// revisions.
func (v Variant) Syncable() bool {
	return v.Canonical()
}

func (v Variant) Valid() bool {
	switch v {
	case VariantPage, VariantItem, VariantRevision, VariantMirror:
		return true
	}
	return false
}

// IsCanonical reports whether item is the live row of its language.
func IsCanonical(item *Item) bool {
	return item != nil && item.Variant.Canonical()
}

// IsRevision reports whether item is a history snapshot.
func IsRevision(item *Item) bool {
	return item != nil && item.Variant == VariantRevision
}

// IsMirror reports whether item is a second category mirror.
func IsMirror(item *Item) bool {
	return item != nil && item.Variant == VariantMirror
}

// EnsureMutable returns an error when item must not be written directly.
func EnsureMutable(item *Item) error {
	switch {
	case item == nil:
		return ErrItemNotFound
	case item.Locked || item.Variant.Lockable():
		return fmt.Errorf("%w: item %d", ErrMirrorLocked, item.ID)
	case IsRevision(item):
		return fmt.Errorf("%w: item %d", ErrRevisionImmutable, item.ID)
	}
	return nil
}

// canonicalVariantFor derives the canonical variant from the root category.
func canonicalVariantFor(root *Category, pagesRootSlug string) Variant {
	if root != nil && pagesRootSlug != "" && root.Slug == pagesRootSlug {
		return VariantPage
	}
	return VariantItem
}
