package items

import (
	"errors"
	"testing"
)

func TestCanChangeStatus(t *testing.T) {
	granting := &Category{ID: 1, Grants: map[string][]string{CategoryPermissionChangeStatus: {"editor"}}}
	plain := &Category{ID: 2}

	editor := &User{ID: 1, Roles: []string{"editor"}}
	moderator := &User{ID: 2, Permissions: []string{PermissionChangeStatus}}
	super := &User{ID: 3, Super: true}

	tests := []struct {
		name        string
		actor       Actor
		category    *Category
		autoPending bool
		want        bool
	}{
		{"anonymous", Actor{}, granting, false, false},
		{"anonymous with auto pending", Actor{}, granting, true, false},
		{"super user", Actor{User: super}, plain, false, true},
		{"super user with auto pending", Actor{User: super}, plain, true, true},
		{"global permission", Actor{User: moderator}, plain, false, true},
		{"global permission ignored with auto pending", Actor{User: moderator}, plain, true, false},
		{"category grant ignored without auto pending", Actor{User: editor}, granting, false, false},
		{"category grant with auto pending", Actor{User: editor}, granting, true, true},
		{"category without grant", Actor{User: editor}, plain, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanChangeStatus(tt.actor, tt.category, tt.autoPending); got != tt.want {
				t.Errorf("CanChangeStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	active := &Item{Status: StatusActive}
	pending := &Item{Status: StatusPending}
	rejected := &Item{Status: StatusRejected}

	tests := []struct {
		name      string
		requested Status
		existing  *Item
		owner     *Item
		capable   bool
		want      Status
	}{
		{"capable sets requested", StatusRejected, active, active, true, StatusRejected},
		{"capable without request keeps status", "", rejected, rejected, true, StatusRejected},
		{"capable new row defaults to pending", "", nil, active, true, StatusPending},
		{"pending cannot be activated", StatusActive, pending, pending, false, StatusPending},
		{"active is preserved", StatusPending, active, active, false, StatusActive},
		{"rejected is preserved", StatusActive, rejected, rejected, false, StatusRejected},
		{"new row of active owner is pending", StatusActive, nil, active, false, StatusPending},
		{"new row of rejected owner inherits", StatusActive, nil, rejected, false, StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := updateStatus(tt.requested, tt.existing, tt.owner, tt.capable); got != tt.want {
				t.Errorf("updateStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr error
	}{
		{"", StatusPending, nil},
		{"active", StatusActive, nil},
		{"deleted", StatusDeleted, nil},
		{"archived", "", ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseStatus() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
