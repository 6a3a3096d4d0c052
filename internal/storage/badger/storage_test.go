package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// newTestDB opens a throwaway store under t.TempDir()
func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}
