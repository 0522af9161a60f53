// Package migrations embeds the ledger's SQL migration set. Grounded on
// the teacher's internal/migrations, which does the same for the
// downloader's sync-manager/log-store/reorg-detector schemas.
package migrations

import (
	_ "embed"

	"github.com/lucasvanbramer/talkpipeline/internal/db"
)

//go:embed 001_ledger_revisions.sql
var mig001 string

//go:embed 002_ledger_pages.sql
var mig002 string

func RunMigrations(dbPath string) error {
	migrations := []db.Migration{
		{
			ID:  "001_ledger_revisions.sql",
			SQL: mig001,
		},
		{
			ID:  "002_ledger_pages.sql",
			SQL: mig002,
		},
	}

	return db.RunMigrations(dbPath, migrations)
}
