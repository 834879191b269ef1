package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsIndependent(t *testing.T) {
	def := "'x'"
	orig := &Table{
		Name: "users",
		Columns: []Column{
			{Name: "id", Type: "serial", Primary: true},
			{Name: "status", Type: "text", Default: &def},
		},
		Indexes:     []Index{{Columns: []string{"status"}}},
		ForeignKeys: []ForeignKey{{Column: "id", ReferencesTable: "legacy"}},
	}

	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	clone.Columns[0].Name = "uid"
	*clone.Columns[1].Default = "'y'"
	clone.Indexes[0].Columns[0] = "other"

	assert.Equal(t, "id", orig.Columns[0].Name)
	assert.Equal(t, "'x'", *orig.Columns[1].Default)
	assert.Equal(t, "status", orig.Indexes[0].Columns[0])
}

func TestEqualIsStructural(t *testing.T) {
	a := &Table{Name: "users", Columns: []Column{{Name: "id", Type: "serial"}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Columns[0].NotNull = true
	assert.False(t, a.Equal(b))

	var nilTable *Table
	assert.False(t, a.Equal(nilTable))
	assert.True(t, nilTable.Equal(nil))
}

func TestValidate(t *testing.T) {
	ok := &Table{Name: "users", Columns: []Column{{Name: "id", Primary: true}, {Name: "email"}}}
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&Table{}).Validate())

	dup := &Table{Name: "users", Columns: []Column{{Name: "id"}, {Name: "id"}}}
	assert.Error(t, dup.Validate())

	twoPKs := &Table{Name: "users", Columns: []Column{{Name: "a", Primary: true}, {Name: "b", Primary: true}}}
	assert.Error(t, twoPKs.Validate())
}

func TestSQLType(t *testing.T) {
	assert.Equal(t, "text", Column{Type: "text"}.SQLType())
	assert.Equal(t, "varchar(255)", Column{Type: "varchar", MaxLength: 255}.SQLType())

	short := Column{Type: "varchar", MaxLength: 255}
	long := Column{Type: "varchar", MaxLength: 1024}
	assert.False(t, short.SameType(long), "a length change is a type change")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "idx_users_email_name", Index{Columns: []string{"email", "name"}}.Name("users"))
	assert.Equal(t, "fk_posts_user_id", ForeignKey{Column: "user_id"}.ConstraintName("posts"))
	assert.Equal(t, "id", ForeignKey{}.Target())
	assert.Equal(t, "uuid", ForeignKey{ReferencesColumn: "uuid"}.Target())
}
