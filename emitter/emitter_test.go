package emitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/schema"
)

func sampleOps() ([]diff.Operation, []diff.Operation) {
	def := "'active'"
	users := &schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "email", Type: "text", NotNull: true, Unique: true},
			{Name: "status", Type: "text", Default: &def},
		},
		Indexes: []schema.Index{{Columns: []string{"email", "status"}}},
	}
	forward := []diff.Operation{
		{Type: diff.CreateTable, Table: "users", Def: users},
		{Type: diff.AddIndex, Table: "users", Columns: []string{"status"}, Unique: false},
	}
	reverse := []diff.Operation{
		{Type: diff.DropTable, Table: "users", Def: users},
	}
	return forward, reverse
}

func TestRenderParseRoundTrip(t *testing.T) {
	forward, reverse := sampleOps()

	data, err := Render("001_users", forward, reverse)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Generated by evolve."))

	doc, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "001_users", doc.Name)
	require.Len(t, doc.Migrate, 2)
	require.Len(t, doc.Rollback, 1)

	got := doc.Migrate[0]
	assert.Equal(t, diff.CreateTable, got.Type)
	require.NotNil(t, got.Def)
	assert.True(t, got.Def.Equal(forward[0].Def), "table snapshots survive the round trip")

	assert.Equal(t, []string{"status"}, doc.Migrate[1].Columns)
	assert.Equal(t, diff.DropTable, doc.Rollback[0].Type)
}

func TestParseHandwrittenScript(t *testing.T) {
	script := `name: 002_touchup
migrate:
  - op: add_column
    table: users
    column:
      name: age
      type: integer
  - op: sql
    sql: "UPDATE users SET age = 0;"
rollback:
  - op: drop_column
    table: users
    name: age
    old_column:
      name: age
      type: integer
`
	doc, err := Parse([]byte(script))
	require.NoError(t, err)
	require.Len(t, doc.Migrate, 2)
	assert.Equal(t, diff.AddColumn, doc.Migrate[0].Type)
	assert.Equal(t, "age", doc.Migrate[0].Column.Name)
	assert.Equal(t, diff.RawSQL, doc.Migrate[1].Type)
	assert.Equal(t, "UPDATE users SET age = 0;", doc.Migrate[1].SQL)
	require.Len(t, doc.Rollback, 1)
	require.NotNil(t, doc.Rollback[0].OldColumn)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	forward, _ := sampleOps()

	data, err := Snapshot(forward[0].Def)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "op: create_table")
	assert.Contains(t, text, "name: users")
	assert.Contains(t, text, "active")
}
