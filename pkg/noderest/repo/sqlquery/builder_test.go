package sqlquery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

func TestBuild_Postgres(t *testing.T) {
	st, err := Build(Postgres, noderest.KindNode, []noderest.Condition{
		{Field: "type", Value: "article"},
		{Field: "status", Value: true},
		{Field: "field_color", Value: "red"},
	}, noderest.PrivilegedAccount)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(st.SQL, "SELECT e.id FROM entities e WHERE e.kind = $1 AND e.bundle = $2 AND e.status = $3 AND EXISTS ("), st.SQL)
	assert.Contains(t, st.SQL, "f.kind = e.kind AND f.entity_id = e.id AND f.field_name = $4")
	assert.Contains(t, st.SQL, "f.value = $5 OR f.uri = $6 OR CAST(f.target_id AS TEXT) = $7")
	assert.True(t, strings.HasSuffix(st.SQL, "ORDER BY e.id"), st.SQL)
	assert.Equal(t, []any{"node", "article", true, "field_color", "red", "red", "red"}, st.Args)
	assert.Equal(t, []string{"article"}, st.Bundles)
	assert.Equal(t, []noderest.Condition{{Field: "field_color", Value: "red"}}, st.Fields)
}

func TestBuild_SQLiteUnprivileged(t *testing.T) {
	st, err := Build(SQLite, noderest.KindNode, []noderest.Condition{
		{Field: "nid", Value: "12"},
		{Field: "title", Value: "Hello"},
		{Field: "status", Value: "0"},
	}, noderest.Account{})
	require.NoError(t, err)

	assert.Equal(t, "SELECT e.id FROM entities e WHERE e.kind = ? AND e.private = ? AND e.id = ? AND e.label = ? AND e.status = ? ORDER BY e.id", st.SQL)
	assert.Equal(t, []any{"node", false, int64(12), "Hello", false}, st.Args)
	assert.Empty(t, st.Fields)
}

func TestBuild_InvalidNID(t *testing.T) {
	_, err := Build(SQLite, noderest.KindNode, []noderest.Condition{{Field: "nid", Value: "abc"}}, noderest.PrivilegedAccount)
	assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
}

func TestBuild_Status(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{true, true},
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{false, false},
		{"0", false},
		{"false", false},
	}
	for _, tt := range tests {
		st, err := Build(SQLite, noderest.KindNode, []noderest.Condition{{Field: "status", Value: tt.value}}, noderest.PrivilegedAccount)
		require.NoError(t, err, tt.value)
		assert.Equal(t, []any{"node", tt.want}, st.Args, tt.value)
	}

	_, err := Build(SQLite, noderest.KindNode, []noderest.Condition{{Field: "status", Value: "published"}}, noderest.PrivilegedAccount)
	assert.ErrorIs(t, err, noderest.ErrInvalidFilter)
}

func TestDefinitionCheck(t *testing.T) {
	sql, args := DefinitionCheck(Postgres, noderest.KindNode, "field_color", []string{"article", "page"})
	assert.Equal(t, "SELECT COUNT(*) FROM field_definitions WHERE entity_kind = $1 AND field_name = $2 AND bundle IN ($3, $4)", sql)
	assert.Equal(t, []any{"node", "field_color", "article", "page"}, args)

	sql, args = DefinitionCheck(SQLite, noderest.KindNode, "field_color", nil)
	assert.Equal(t, "SELECT COUNT(*) FROM field_definitions WHERE entity_kind = ? AND field_name = ?", sql)
	assert.Equal(t, []any{"node", "field_color"}, args)
}

func TestQuery(t *testing.T) {
	q := NewQuery(noderest.KindNode)
	q.AddCondition("type", "page")
	q.SetMeta(noderest.MetaAccount, noderest.PrivilegedAccount)

	assert.Equal(t, []noderest.Condition{{Field: "type", Value: "page"}}, q.Conditions())
	assert.True(t, q.Account().IsPrivileged())

	st, err := q.Build(SQLite)
	require.NoError(t, err)
	assert.NotContains(t, st.SQL, "private")
}
