package main

import (
	"context"
	"fmt"

	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	pgrepo "github.com/ogurasousui/codex-employee-api/internal/adapters/repository/postgres"
	sqliterepo "github.com/ogurasousui/codex-employee-api/internal/adapters/repository/sqlite"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/ogurasousui/codex-employee-api/internal/platform/config"
	pgdb "github.com/ogurasousui/codex-employee-api/internal/platform/db/postgres"
	sqlitedb "github.com/ogurasousui/codex-employee-api/internal/platform/db/sqlite"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
)

// store は選択されたバックエンドの依存関係をまとめます。
type store struct {
	repo   employee.Repository
	tx     employee.TransactionManager
	pinger handler.DBPinger
	close  func()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, m *metrics.Metrics) (*store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgdb.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres pool: %w", err)
		}
		return &store{
			repo:   pgrepo.NewEmployeeRepository(pool, m),
			tx:     pgdb.NewTransactionManager(pool),
			pinger: pool,
			close:  pool.Close,
		}, nil
	case config.DriverSQLite:
		db, err := sqlitedb.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return &store{
			repo:   sqliterepo.NewEmployeeRepository(db, m),
			tx:     sqlitedb.NewTransactionManager(db),
			pinger: handler.PingFunc(db.PingContext),
			close:  func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
