package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/evolve/schema"
)

func strptr(s string) *string { return &s }

func usersTable() *schema.Table {
	return &schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "email", Type: "text", NotNull: true, Unique: true},
			{Name: "name", Type: "text", NotNull: true},
		},
	}
}

func opTypes(ops []Operation) []OperationType {
	out := make([]OperationType, len(ops))
	for i, op := range ops {
		out[i] = op.Type
	}
	return out
}

func TestOneCreateTable(t *testing.T) {
	users := usersTable()

	ops := One(nil, users)

	require.Len(t, ops, 1)
	assert.Equal(t, CreateTable, ops[0].Type)
	assert.Equal(t, "users", ops[0].Table)
	require.NotNil(t, ops[0].Def)
	assert.True(t, ops[0].Def.Equal(users))
}

func TestOneDropTable(t *testing.T) {
	ops := One(usersTable(), nil)

	require.Len(t, ops, 1)
	assert.Equal(t, DropTable, ops[0].Type)
	require.NotNil(t, ops[0].Def, "drop carries the definition for its inverse")
}

func TestOneNoChanges(t *testing.T) {
	assert.Empty(t, One(usersTable(), usersTable()))
	assert.Nil(t, One(nil, nil))
}

func TestOneAddColumnWithForeignKey(t *testing.T) {
	old := usersTable()
	new := usersTable()
	new.Columns = append(new.Columns, schema.Column{Name: "org_id", Type: "integer"})
	new.ForeignKeys = []schema.ForeignKey{{Column: "org_id", ReferencesTable: "orgs"}}

	ops := One(old, new)

	require.Equal(t, []OperationType{AddColumn, AddForeignKey}, opTypes(ops))
	assert.Equal(t, "org_id", ops[0].Column.Name)
	assert.Equal(t, "orgs", ops[1].ForeignKey.ReferencesTable)
}

func TestOneDropColumnDropsForeignKeyFirst(t *testing.T) {
	old := usersTable()
	old.Columns = append(old.Columns, schema.Column{Name: "org_id", Type: "integer"})
	old.ForeignKeys = []schema.ForeignKey{{Column: "org_id", ReferencesTable: "orgs"}}
	new := usersTable()

	ops := One(old, new)

	require.Equal(t, []OperationType{DropForeignKey, DropColumn}, opTypes(ops))
	assert.Equal(t, "org_id", ops[1].Name)
	require.NotNil(t, ops[1].OldColumn, "dropped column keeps its definition for rollback")
}

func TestOneDetectsRename(t *testing.T) {
	old := usersTable()
	new := usersTable()
	new.Columns[2].Name = "full_name"

	ops := One(old, new)

	require.Len(t, ops, 1)
	assert.Equal(t, RenameColumn, ops[0].Type)
	assert.Equal(t, "name", ops[0].Name)
	assert.Equal(t, "full_name", ops[0].NewName)
}

func TestOneRenameRequiresIdenticalDefinition(t *testing.T) {
	old := usersTable()
	new := usersTable()
	new.Columns[2] = schema.Column{Name: "full_name", Type: "varchar", MaxLength: 255}

	ops := One(old, new)

	assert.Equal(t, []OperationType{AddColumn, DropColumn}, opTypes(ops))
}

func TestOneRenameRespectsForeignKeys(t *testing.T) {
	old := usersTable()
	old.Columns = append(old.Columns, schema.Column{Name: "org_id", Type: "integer"})
	old.ForeignKeys = []schema.ForeignKey{{Column: "org_id", ReferencesTable: "orgs"}}
	new := usersTable()
	new.Columns = append(new.Columns, schema.Column{Name: "company_id", Type: "integer"})
	new.ForeignKeys = []schema.ForeignKey{{Column: "company_id", ReferencesTable: "orgs"}}

	ops := One(old, new)

	require.Len(t, ops, 1)
	assert.Equal(t, RenameColumn, ops[0].Type)
}

// A type change on an indexed not-null column drops the index and the
// constraint first and restores both after the change, even though neither
// declaration changed.
func TestOneTypeChangeProtectsIndexAndNotNull(t *testing.T) {
	old := &schema.Table{Name: "items", Columns: []schema.Column{
		{Name: "id", Type: "serial", Primary: true},
		{Name: "code", Type: "varchar", MaxLength: 255, NotNull: true, Index: true},
	}}
	new := old.Clone()
	new.Columns[1].MaxLength = 1024

	ops := One(old, new)

	require.Equal(t, []OperationType{DropIndex, DropNotNull, AlterColumnType, AddNotNull, AddIndex}, opTypes(ops))
	assert.Equal(t, []string{"code"}, ops[0].Columns)
	assert.False(t, ops[0].WasUnique)
	require.NotNil(t, ops[2].OldColumn)
	assert.Equal(t, 255, ops[2].OldColumn.MaxLength)
	assert.Equal(t, 1024, ops[2].Column.MaxLength)
}

// A combined change keeps one canonical order: the type change, then the
// constraint, then the default, then the index redefinition at the end.
func TestOneCombinedChangeOrdering(t *testing.T) {
	old := &schema.Table{Name: "items", Columns: []schema.Column{
		{Name: "id", Type: "serial", Primary: true},
		{Name: "price", Type: "integer", Index: true},
	}}
	new := &schema.Table{Name: "items", Columns: []schema.Column{
		{Name: "id", Type: "serial", Primary: true},
		{Name: "price", Type: "numeric", NotNull: true, Unique: true, Default: strptr("0")},
	}}

	ops := One(old, new)

	require.Equal(t, []OperationType{AlterColumnType, AddNotNull, AddDefault, DropIndex, AddIndex}, opTypes(ops))
	assert.False(t, ops[3].WasUnique)
	assert.True(t, ops[4].Unique)
}

func TestOneDefaultChanges(t *testing.T) {
	old := usersTable()
	old.Columns[2].Default = strptr("'guest'")
	new := usersTable()

	ops := One(old, new)
	require.Equal(t, []OperationType{DropDefault}, opTypes(ops))
	assert.Equal(t, "'guest'", *ops[0].OldDefault)

	ops = One(new, old)
	require.Equal(t, []OperationType{AddDefault}, opTypes(ops))
	assert.Equal(t, "'guest'", *ops[0].Default)
	assert.Nil(t, ops[0].OldDefault)
}

func TestOneCompositeIndexChanges(t *testing.T) {
	old := usersTable()
	old.Indexes = []schema.Index{{Columns: []string{"email", "name"}}}
	new := usersTable()
	new.Indexes = []schema.Index{{Columns: []string{"email", "name"}, Unique: true}}

	ops := One(old, new)

	require.Equal(t, []OperationType{DropIndex, AddIndex}, opTypes(ops))
	assert.Equal(t, []string{"email", "name"}, ops[0].Columns)
	assert.True(t, ops[1].Unique)
}

func TestOneCompositeIndexGoesWithDroppedColumn(t *testing.T) {
	old := usersTable()
	old.Indexes = []schema.Index{{Columns: []string{"email", "name"}}}
	new := usersTable()
	new.Columns = new.Columns[:2] // drop name

	ops := One(old, new)

	// The index disappears with its column; no separate drop_index.
	require.Equal(t, []OperationType{DropColumn}, opTypes(ops))
}

func TestManyCreatesAndDrops(t *testing.T) {
	news := []schema.Table{*usersTable(), {Name: "posts", Columns: []schema.Column{{Name: "id", Type: "serial", Primary: true}}}}
	olds := []schema.Table{*usersTable(), {Name: "legacy", Columns: []schema.Column{{Name: "id", Type: "serial", Primary: true}}}}

	ops := Many(news, olds, false)

	require.Equal(t, []OperationType{CreateTable, DropTable}, opTypes(ops))
	assert.Equal(t, "posts", ops[0].Table)
	assert.Equal(t, "legacy", ops[1].Table)
}

// The rollback list is derived by swapping the inputs, not by reversing the
// forward list, so it follows the same ordering rules.
func TestManyReverseIsDerived(t *testing.T) {
	olds := []schema.Table{*usersTable()}
	news := []schema.Table{*usersTable()}
	news[0].Columns = append(news[0].Columns, schema.Column{Name: "org_id", Type: "integer"})
	news[0].ForeignKeys = []schema.ForeignKey{{Column: "org_id", ReferencesTable: "orgs"}}

	forward := Many(news, olds, false)
	reverse := Many(news, olds, true)

	require.Equal(t, []OperationType{AddColumn, AddForeignKey}, opTypes(forward))
	require.Equal(t, []OperationType{DropForeignKey, DropColumn}, opTypes(reverse))
}

func TestInvertPairs(t *testing.T) {
	users := usersTable()
	cases := []Operation{
		{Type: CreateTable, Table: "users", Def: users},
		{Type: AddColumn, Table: "users", Column: &schema.Column{Name: "age", Type: "integer"}},
		{Type: RenameColumn, Table: "users", Name: "name", NewName: "full_name"},
		{Type: AddNotNull, Table: "users", Name: "name"},
		{Type: AddIndex, Table: "users", Columns: []string{"email"}, Unique: true},
		{Type: AddForeignKey, Table: "users", ForeignKey: &schema.ForeignKey{Column: "org_id", ReferencesTable: "orgs"}},
	}
	want := []OperationType{DropTable, DropColumn, RenameColumn, DropNotNull, DropIndex, DropForeignKey}

	for i, op := range cases {
		inv, ok := op.Invert()
		require.True(t, ok, "case %d", i)
		assert.Equal(t, want[i], inv.Type, "case %d", i)

		back, ok := inv.Invert()
		require.True(t, ok, "case %d", i)
		assert.Equal(t, op.Type, back.Type, "case %d round trip", i)
	}
}

func TestInvertDefaultKeepsOldValue(t *testing.T) {
	op := Operation{Type: AddDefault, Table: "users", Name: "status", Default: strptr("'active'"), OldDefault: strptr("'guest'")}

	inv, ok := op.Invert()

	require.True(t, ok)
	assert.Equal(t, AddDefault, inv.Type, "replacing a default rolls back to the previous one")
	assert.Equal(t, "'guest'", *inv.Default)
}

func TestInvertRawSQLFails(t *testing.T) {
	_, ok := Operation{Type: RawSQL, SQL: "UPDATE users SET status = 'active';"}.Invert()
	assert.False(t, ok)
}
