package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/repotest"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/sqlite"
)

func openStore(t *testing.T) repotest.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Conformance(t *testing.T) {
	repotest.Run(t, openStore)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	repotest.Seed(t, s)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	e, err := s.LoadEntity(ctx, noderest.KindNode, 1)
	require.NoError(t, err)
	assert.Equal(t, "One", e.Label)

	ids, err := s.NewQuery(noderest.KindNode).
		AddMetaData(noderest.MetaAccount, noderest.PrivilegedAccount).
		Condition("type", "article").
		Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestSQLiteStore_CancelledContext(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.NewQuery(noderest.KindNode).Execute(ctx)
	assert.Error(t, err)
}
