package store

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Open returns a PostgreSQL store when databaseURL is a postgres URL, otherwise a SQLite store
// at sqlitePath.
func Open(databaseURL, sqlitePath string, logger *logrus.Logger) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return NewPostgresStoreFromURL(databaseURL, logger)
	}
	return NewSQLiteStore(sqlitePath, logger)
}
