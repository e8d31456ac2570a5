// Package testutil provides test utilities for ledger setup.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tokenwatt/internal/infrastructure/sqlite"
)

// NewTestLedger creates a migrated ledger database in a temp directory and
// returns it with its path. The database is closed on test cleanup.
func NewTestLedger(t *testing.T) (*sqlite.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sqlite.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}
