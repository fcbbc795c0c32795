package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/sql"
)

// SQLMigrations applies the migrations of a component when the component is loaded.
type SQLMigrations interface {
	MustRegister(sources ...sql.MigrationSource)
}

type sqlMigrations struct {
	ctx      context.Context
	migrator *sql.Migrator
	mutex    sync.Mutex
}

func NewSQLMigrations(
	ctx context.Context,
	db sql.Database,
	logger log.Logger,
) SQLMigrations {
	return &sqlMigrations{
		ctx:      ctx,
		migrator: sql.NewMigrator(db, logger),
	}
}

func (s *sqlMigrations) MustRegister(sources ...sql.MigrationSource) {
	if len(sources) == 0 {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.migrator.Execute(s.ctx, sources...)
	if err != nil {
		panic(fmt.Errorf("execute migrations: %w", err))
	}
}
