package migrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/schema"
)

func newTestMigrator() (*Migrator, *database.Recorder) {
	rec := &database.Recorder{}
	return New(rec, ""), rec
}

func userTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "email", Type: "text", NotNull: true, Unique: true},
			{Name: "name", Type: "text", Index: true},
		},
	}
}

func TestCreateTableQueuesDDL(t *testing.T) {
	m, _ := newTestMigrator()

	require.NoError(t, m.CreateTable(userTable()))

	pending := m.Pending()
	require.Len(t, pending, 2)
	assert.Contains(t, pending[0], `CREATE TABLE "users"`)
	assert.Contains(t, pending[0], `"email" text NOT NULL UNIQUE`)
	assert.Equal(t, `CREATE INDEX "idx_users_name" ON "users" ("name");`, pending[1])

	require.NotNil(t, m.Table("users"))
}

func TestCreateTableValidates(t *testing.T) {
	m, _ := newTestMigrator()

	err := m.CreateTable(schema.Table{Name: "bad", Columns: []schema.Column{
		{Name: "a", Type: "integer", Primary: true},
		{Name: "b", Type: "integer", Primary: true},
	}})

	require.Error(t, err)
	assert.Nil(t, m.Table("bad"))
	assert.Empty(t, m.Pending())
}

func TestRunFlushesQueueInOrder(t *testing.T) {
	m, rec := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	queued := m.Pending()

	require.NoError(t, m.Run(context.Background()))

	assert.Equal(t, queued, rec.Statements)
	assert.Empty(t, m.Pending(), "queue is cleared after a successful run")
}

func TestRunSelectsSchemaFirst(t *testing.T) {
	rec := &database.Recorder{}
	m := New(rec, "tenant_a")
	require.NoError(t, m.CreateTable(userTable()))

	require.NoError(t, m.Run(context.Background()))

	require.NotEmpty(t, rec.Statements)
	assert.Equal(t, "SET search_path TO tenant_a", rec.Statements[0])
}

func TestRunEmptyQueueIsNoop(t *testing.T) {
	rec := &database.Recorder{}
	m := New(rec, "tenant_a")

	require.NoError(t, m.Run(context.Background()))

	assert.Empty(t, rec.Statements, "no search_path selection when there is nothing to run")
}

func TestCleanDiscardsQueueKeepsRegistry(t *testing.T) {
	m, rec := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))

	m.Clean()

	assert.Empty(t, m.Pending())
	require.NoError(t, m.Run(context.Background()))
	assert.Empty(t, rec.Statements)
	assert.NotNil(t, m.Table("users"), "fake replay keeps the registry mutation")
}

func TestAddColumns(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddColumns("users", schema.Column{Name: "age", Type: "integer"}))

	require.Len(t, m.Pending(), 1)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "age" integer;`, m.Pending()[0])
	assert.NotNil(t, m.Table("users").Column("age"))

	err := m.AddColumns("users", schema.Column{Name: "age", Type: "integer"})
	assert.Error(t, err, "duplicate column is refused")
}

func TestDropColumnsDropsForeignKeyFirst(t *testing.T) {
	m, _ := newTestMigrator()
	table := userTable()
	table.Columns = append(table.Columns, schema.Column{Name: "org_id", Type: "integer"})
	table.ForeignKeys = []schema.ForeignKey{{Column: "org_id", ReferencesTable: "orgs"}}
	require.NoError(t, m.CreateTable(table))
	m.Clean()

	require.NoError(t, m.DropColumns("users", "org_id"))

	pending := m.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, `ALTER TABLE "users" DROP CONSTRAINT "fk_users_org_id";`, pending[0])
	assert.Equal(t, `ALTER TABLE "users" DROP COLUMN "org_id";`, pending[1])
	assert.Nil(t, m.Table("users").Column("org_id"))
	assert.Empty(t, m.Table("users").ForeignKeys)
}

func TestRemoveFieldsTouchesRegistryOnly(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.RemoveFields("users", "name"))

	assert.Empty(t, m.Pending())
	assert.Nil(t, m.Table("users").Column("name"))
}

func TestRenameField(t *testing.T) {
	m, _ := newTestMigrator()
	table := userTable()
	table.Indexes = []schema.Index{{Columns: []string{"email", "name"}}}
	require.NoError(t, m.CreateTable(table))
	m.Clean()

	require.NoError(t, m.RenameField("users", "name", "full_name"))

	require.Len(t, m.Pending(), 1)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "name" TO "full_name";`, m.Pending()[0])
	got := m.Table("users")
	assert.Nil(t, got.Column("name"))
	assert.NotNil(t, got.Column("full_name"))
	assert.Equal(t, []string{"email", "full_name"}, got.Indexes[0].Columns, "composite indexes follow the rename")
}

func TestNotNullToggles(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddNotNull("users", "name"))
	require.NoError(t, m.DropNotNull("users", "email"))

	pending := m.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "name" SET NOT NULL;`, pending[0])
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "email" DROP NOT NULL;`, pending[1])
	assert.True(t, m.Table("users").Column("name").NotNull)
	assert.False(t, m.Table("users").Column("email").NotNull)
}

func TestDefaults(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddDefault("users", "name", "'guest'"))
	require.Len(t, m.Pending(), 1)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "name" SET DEFAULT 'guest';`, m.Pending()[0])
	require.NotNil(t, m.Table("users").Column("name").Default)

	m.Clean()
	require.NoError(t, m.DropDefault("users", "name"))
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "name" DROP DEFAULT;`, m.Pending()[0])
	assert.Nil(t, m.Table("users").Column("name").Default)
}

func TestCallableDefaultGeneratesNoDDL(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddDefault("users", "name", schema.CallableDefault))

	assert.Empty(t, m.Pending())
	require.NotNil(t, m.Table("users").Column("name").Default, "registry still records the default")
}

func TestAddIndexSingleColumnSetsFlags(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddIndex("users", true, "name"))

	col := m.Table("users").Column("name")
	assert.True(t, col.Unique)
	assert.False(t, col.Index, "a unique index supersedes the plain one")
	require.Len(t, m.Pending(), 1)
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_name" ON "users" ("name");`, m.Pending()[0])
}

func TestAddIndexComposite(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.AddIndex("users", false, "email", "name"))

	assert.True(t, m.Table("users").HasIndex([]string{"email", "name"}, false))
	assert.Equal(t, `CREATE INDEX "idx_users_email_name" ON "users" ("email", "name");`, m.Pending()[0])
}

func TestDropIndexComputesWasUnique(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	require.NoError(t, m.DropIndex("users", "email"))

	col := m.Table("users").Column("email")
	assert.False(t, col.Unique)
	assert.Equal(t, `DROP INDEX IF EXISTS "idx_users_email";`, m.Pending()[0])
}

func TestChangeColumnsClearsCompositeIndexes(t *testing.T) {
	m, _ := newTestMigrator()
	table := userTable()
	table.Indexes = []schema.Index{
		{Columns: []string{"email", "name"}},
	}
	require.NoError(t, m.CreateTable(table))
	m.Clean()

	require.NoError(t, m.ChangeColumns("users", schema.Column{Name: "name", Type: "varchar", MaxLength: 120}))

	got := m.Table("users")
	assert.Equal(t, "varchar", got.Column("name").Type)
	assert.Empty(t, got.Indexes, "indexes over a changed column are no longer tracked")
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "name" TYPE varchar(120) USING "name"::varchar(120);`, m.Pending()[0])
}

func TestSQLQueuesRawStatement(t *testing.T) {
	m, rec := newTestMigrator()

	m.SQL("UPDATE users SET status = 'active';")

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"UPDATE users SET status = 'active';"}, rec.Statements)
}

func TestBindSharesRegistry(t *testing.T) {
	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(userTable()))
	m.Clean()

	tx := &database.Recorder{}
	bound := m.Bind(tx)
	require.NoError(t, bound.AddColumns("users", schema.Column{Name: "age", Type: "integer"}))
	require.NoError(t, bound.Run(context.Background()))

	assert.Equal(t, []string{`ALTER TABLE "users" ADD COLUMN "age" integer;`}, tx.Statements)
	assert.NotNil(t, m.Table("users").Column("age"), "registry mutations are visible through the origin")
	assert.Empty(t, m.Pending(), "the origin's queue is untouched")
}

// Applying the forward diff to the old snapshot must land exactly on the new
// snapshot, otherwise fake replay would drift from reality.
func TestApplyDiffReachesTarget(t *testing.T) {
	old := schema.Table{
		Name: "items",
		Columns: []schema.Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "code", Type: "varchar", MaxLength: 255, NotNull: true, Index: true},
			{Name: "legacy", Type: "text"},
		},
		Indexes: []schema.Index{{Columns: []string{"code", "legacy"}}},
	}
	new := schema.Table{
		Name: "items",
		Columns: []schema.Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "code", Type: "varchar", MaxLength: 1024, NotNull: true, Index: true},
			{Name: "owner_id", Type: "integer", NotNull: true},
		},
		ForeignKeys: []schema.ForeignKey{{Column: "owner_id", ReferencesTable: "users", OnDelete: "CASCADE"}},
	}

	m, _ := newTestMigrator()
	require.NoError(t, m.CreateTable(old))
	m.Clean()

	ops := diff.One(&old, &new)
	require.NotEmpty(t, ops)
	require.NoError(t, m.Apply(ops...))

	got := m.Table("items")
	assert.True(t, got.Equal(&new), "replayed state must equal the target snapshot")
}
