// Package crm provides read-only dashboard aggregates over the business
// tables (leads, accounts, active_deals, contacts). Admins see
// organization-wide numbers; everyone else sees only records they created.
package crm

import (
	"context"
	"time"
)

// Metrics holds the four dashboard counts.
type Metrics struct {
	Leads       int64 `json:"leads"`
	Accounts    int64 `json:"accounts"`
	ActiveDeals int64 `json:"activeDeals"`
	Contacts    int64 `json:"contacts"`
}

// Activity is one row of the recent cross-entity activity feed.
type Activity struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dashboard bundles counts with the most recent activity rows.
type Dashboard struct {
	Metrics          Metrics
	RecentActivities []Activity
}

// Scope restricts queries to a creator. All disables the restriction.
type Scope struct {
	UserID string
	All    bool
}

// Store describes the read-only reporting queries.
type Store interface {
	Dashboard(ctx context.Context, scope Scope) (Dashboard, error)
}
