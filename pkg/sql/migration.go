package sql

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/klwxsrx/event-booking/pkg/log"
)

const (
	migrationLock = "perform_migration_lock"

	migrationTableDDL = `
		create table if not exists migration (
			id text primary key
		)
	`
)

type (
	Migration struct {
		ID  string
		SQL string
	}

	MigrationSource func() ([]Migration, error)

	Migrator struct {
		db     Database
		logger log.Logger
	}
)

// FSMigrations reads every *.sql file of the directory as a migration identified by its file name.
func FSMigrations(fsys fs.FS, dir string) MigrationSource {
	return func() ([]Migration, error) {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("read migrations dir: %w", err)
		}

		result := make([]Migration, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
				continue
			}

			content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
			if err != nil {
				return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
			}

			result = append(result, Migration{
				ID:  strings.TrimSuffix(entry.Name(), ".sql"),
				SQL: string(content),
			})
		}

		return result, nil
	}
}

func NewMigrator(db Database, logger log.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

func (m *Migrator) Execute(ctx context.Context, sources ...MigrationSource) error {
	migrations, err := collectMigrations(sources)
	if err != nil {
		return err
	}

	ctx, releaseLock, err := withSessionLevelLock(ctx, migrationLock, m.db)
	if err != nil {
		return fmt.Errorf("get migration lock: %w", err)
	}
	defer func() {
		err := releaseLock()
		if err != nil {
			m.logger.WithError(err).Error(ctx, "failed to release migration lock")
		}
	}()

	_, err = m.db.ExecContext(ctx, migrationTableDDL)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	performed, err := m.performedMigrationIDs(ctx)
	if err != nil {
		return fmt.Errorf("get performed migrations: %w", err)
	}

	for _, migration := range migrations {
		if _, ok := performed[migration.ID]; ok {
			continue
		}

		err = m.perform(ctx, migration)
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.ID, err)
		}

		m.logger.WithField("migrationID", migration.ID).Info(ctx, "migration executed successfully")
	}

	return nil
}

func (m *Migrator) perform(ctx context.Context, migration Migration) error {
	if strings.TrimSpace(migration.SQL) == "" {
		return errors.New("empty migration")
	}

	return NewTransaction(m.db).WithinContext(ctx, func(ctx context.Context) error {
		_, err := m.db.ExecContext(ctx, `insert into migration values ($1)`, migration.ID)
		if err != nil {
			return fmt.Errorf("insert migration record: %w", err)
		}

		_, err = m.db.ExecContext(ctx, migration.SQL)
		return err
	})
}

func (m *Migrator) performedMigrationIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := m.db.SelectContext(ctx, &ids, `select id from migration`)
	if err != nil {
		return nil, err
	}

	result := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		result[id] = struct{}{}
	}

	return result, nil
}

func collectMigrations(sources []MigrationSource) ([]Migration, error) {
	var result []Migration
	seen := make(map[string]struct{})
	for _, source := range sources {
		migrations, err := source()
		if err != nil {
			return nil, fmt.Errorf("load migrations: %w", err)
		}

		for _, migration := range migrations {
			if _, ok := seen[migration.ID]; ok {
				return nil, fmt.Errorf("duplicate migration id %s", migration.ID)
			}
			seen[migration.ID] = struct{}{}
			result = append(result, migration)
		}
	}

	slices.SortStableFunc(result, func(a, b Migration) int {
		return strings.Compare(a.ID, b.ID)
	})

	return result, nil
}
