package models

import (
	"fmt"
	"time"
)

// ResourceStatus is the closed set of listing states.
type ResourceStatus string

const (
	ResourceStatusActive   ResourceStatus = "ACTIVE"
	ResourceStatusInactive ResourceStatus = "INACTIVE"
	ResourceStatusPending  ResourceStatus = "PENDING"
)

func ParseResourceStatus(s string) (ResourceStatus, error) {
	switch ResourceStatus(s) {
	case ResourceStatusActive, ResourceStatusInactive, ResourceStatusPending:
		return ResourceStatus(s), nil
	default:
		return "", fmt.Errorf("unknown resource status %q", s)
	}
}

// Resource is the slice of a listing the messaging core needs: ownership,
// display context for notifications, and visibility.
type Resource struct {
	ID        int64
	UserID    int64
	Title     string
	City      string
	Status    ResourceStatus
	CreatedAt time.Time
}

// PubliclyVisible reports whether the listing may be referenced by new
// messages. Only ACTIVE listings are visible.
func (r *Resource) PubliclyVisible() bool {
	return r.Status == ResourceStatusActive
}
