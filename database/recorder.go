package database

import (
	"context"
	"strings"
	"sync"
)

// Recorder implements DB without touching any database: every statement is
// appended to Statements. It backs --dry-run previews and tests; a migration
// replayed against it mutates the registry while no DDL reaches a server.
type Recorder struct {
	mu         sync.Mutex
	Statements []string

	// FailOn makes Exec return ErrForced for statements containing the
	// substring, to exercise rollback paths.
	FailOn string
	Err    error
}

func (r *Recorder) Exec(ctx context.Context, sql string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOn != "" && strings.Contains(sql, r.FailOn) {
		return r.Err
	}
	r.Statements = append(r.Statements, sql)
	return nil
}

func (r *Recorder) QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	return nil, nil
}

func (r *Recorder) Transaction(ctx context.Context, fn func(tx DB) error) error {
	return fn(r)
}

// Reset clears the recorded statements.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statements = nil
}
