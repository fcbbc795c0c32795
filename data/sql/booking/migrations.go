package booking

import (
	"embed"

	"github.com/klwxsrx/event-booking/pkg/sql"
)

var Migrations = sql.FSMigrations(migrationFiles, ".")

//go:embed *.sql
var migrationFiles embed.FS
