package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	gooseInit sync.Once
	gooseErr  error
)

// RunMigrations applies the embedded schema and returns the resulting
// version. A nil pool is a no-op for in-memory setups.
func RunMigrations(ctx context.Context, pool *sql.DB) (int64, error) {
	if pool == nil {
		return 0, nil
	}
	gooseInit.Do(func() {
		goose.SetBaseFS(migrations)
		gooseErr = goose.SetDialect("postgres")
	})
	if gooseErr != nil {
		return 0, gooseErr
	}
	if err := goose.UpContext(ctx, pool, "migrations"); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, pool)
}
