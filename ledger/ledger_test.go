package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/evolve/database"
)

func TestPostgresStatements(t *testing.T) {
	ctx := context.Background()
	rec := &database.Recorder{}
	led := NewPostgres(rec, "billing")

	require.NoError(t, led.Ensure(ctx))
	require.NoError(t, led.Append(ctx, rec, "001_users"))
	require.NoError(t, led.Remove(ctx, rec, "001_users"))
	require.NoError(t, led.Clear(ctx))

	require.Len(t, rec.Statements, 4)
	assert.Contains(t, rec.Statements[0], `CREATE TABLE IF NOT EXISTS "migrate_history"`)
	assert.Contains(t, rec.Statements[1], `INSERT INTO "migrate_history" (name, module)`)
	assert.Contains(t, rec.Statements[2], `DELETE FROM "migrate_history" WHERE name = $1;`)
	assert.Equal(t, `DELETE FROM "migrate_history";`, rec.Statements[3])
}

func TestPostgresAppendJoinsGivenHandle(t *testing.T) {
	ctx := context.Background()
	outer := &database.Recorder{}
	tx := &database.Recorder{}
	led := NewPostgres(outer, "")

	// Writes go through the handle passed in, not the one the ledger holds,
	// so they land inside the migration's transaction.
	require.NoError(t, led.Append(ctx, tx, "002_posts"))
	assert.Empty(t, outer.Statements)
	require.Len(t, tx.Statements, 1)
}

func TestMemoryOrderAndRemove(t *testing.T) {
	ctx := context.Background()
	led := &Memory{}

	require.NoError(t, led.Append(ctx, nil, "001_users"))
	require.NoError(t, led.Append(ctx, nil, "002_posts"))
	require.NoError(t, led.Append(ctx, nil, "003_status"))

	done, err := led.Done(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_users", "002_posts", "003_status"}, done)

	require.NoError(t, led.Remove(ctx, nil, "002_posts"))
	done, _ = led.Done(ctx)
	assert.Equal(t, []string{"001_users", "003_status"}, done)

	// Removing an unknown name is not an error.
	require.NoError(t, led.Remove(ctx, nil, "099_missing"))

	require.NoError(t, led.Clear(ctx))
	done, _ = led.Done(ctx)
	assert.Empty(t, done)
}

func TestMemoryDoneReturnsCopy(t *testing.T) {
	ctx := context.Background()
	led := &Memory{Names: []string{"001_users"}}

	done, err := led.Done(ctx)
	require.NoError(t, err)
	done[0] = "mutated"
	assert.Equal(t, []string{"001_users"}, led.Names)
}
