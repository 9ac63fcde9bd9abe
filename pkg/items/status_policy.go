package items

import "fmt"

// Permission names consulted by the status policy.
const (
	PermissionChangeStatus         = "items::can_change_status"
	CategoryPermissionChangeStatus = "can_change_status"
)

// ParseStatus validates s as an item status. The empty string yields
// StatusPending.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusPending, nil
	case StatusPending, StatusActive, StatusRejected, StatusDeleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
}

// CanChangeStatus reports whether the actor may choose the status of items
// placed in category. With auto pending enabled the category grant decides,
// otherwise the user's global permission does. Super users always may.
func CanChangeStatus(actor Actor, category *Category, autoPending bool) bool {
	if !actor.Authenticated() {
		return false
	}
	user := actor.User
	switch {
	case user.IsSuper():
		return true
	case !autoPending:
		return user.Can(PermissionChangeStatus)
	default:
		return category != nil && category.Can(user, CategoryPermissionChangeStatus)
	}
}

// createStatus returns the status of a new row. Without the capability only
// pending may be chosen.
func createStatus(requested Status, capable bool) Status {
	if requested == "" {
		return StatusPending
	}
	if !capable {
		return StatusPending
	}
	return requested
}

// updateStatus returns the status of an updated row. Without the capability
// the requested status is ignored: an existing row keeps its status, and a
// row added to an existing item inherits the owner's status unless the owner
// is active, in which case it starts pending. An existing row keeps its own
// status, not the source row's, so an active translation saved by an editor
// without the capability stays active even when the source row is pending.
func updateStatus(requested Status, existing, owner *Item, capable bool) Status {
	if capable {
		if requested == "" {
			if existing != nil {
				return existing.Status
			}
			return StatusPending
		}
		return requested
	}
	if existing != nil {
		return existing.Status
	}
	if owner != nil && owner.Status != StatusActive && owner.Status != "" {
		return owner.Status
	}
	return StatusPending
}
