package crm

import (
	"context"
	"database/sql"
	"fmt"
)

const recentActivityLimit = 10

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. All queries are
// non-mutating counts and projections.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// countTables maps metric fields to the tables they count. Table names
// are fixed here, never taken from input.
var countTables = [4]string{"leads", "accounts", "active_deals", "contacts"}

func (s *PGStore) Dashboard(ctx context.Context, scope Scope) (Dashboard, error) {
	var d Dashboard
	counts := [4]*int64{&d.Metrics.Leads, &d.Metrics.Accounts, &d.Metrics.ActiveDeals, &d.Metrics.Contacts}
	for i, table := range countTables {
		n, err := s.count(ctx, table, scope)
		if err != nil {
			return Dashboard{}, fmt.Errorf("count %s: %w", table, err)
		}
		*counts[i] = n
	}

	activities, err := s.recentActivities(ctx, scope)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent activities: %w", err)
	}
	d.RecentActivities = activities
	return d, nil
}

func (s *PGStore) count(ctx context.Context, table string, scope Scope) (int64, error) {
	query := `select count(*) from ` + table
	var args []any
	if !scope.All {
		query += ` where created_by=$1`
		args = append(args, scope.UserID)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PGStore) recentActivities(ctx context.Context, scope Scope) ([]Activity, error) {
	filter := ""
	var args []any
	if !scope.All {
		filter = ` where created_by=$1`
		args = append(args, scope.UserID)
	}
	query := `select 'lead' as type, name, status, created_at from leads` + filter +
		` union all select 'account', name, status, created_at from accounts` + filter +
		` union all select 'deal', name, stage, created_at from active_deals` + filter +
		` union all select 'contact', name, coalesce(title,''), created_at from contacts` + filter +
		fmt.Sprintf(` order by created_at desc limit %d`, recentActivityLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.Type, &a.Name, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
