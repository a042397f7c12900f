package aggregate

import (
	"context"

	"rebateLedger/internal/storage/postgres"
)

// DBStateStore keeps report progress in the report_state table.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (int64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadReportState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts int64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveReportState(ctx, s.Name, ts)
}
