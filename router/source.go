package router

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ridoystarlord/evolve/database"
	"github.com/ridoystarlord/evolve/diff"
	"github.com/ridoystarlord/evolve/emitter"
	"github.com/ridoystarlord/evolve/migrator"
)

// MigrateFunc is one direction of a migration: it drives the migrator (and
// may use the database directly for data fixes). With fake set the registry
// is still mutated but nothing it enqueues will be executed.
type MigrateFunc func(ctx context.Context, m *migrator.Migrator, db database.DB, fake bool) error

// Migration is a named pair of forward and reverse procedures. A nil
// procedure is a no-op.
type Migration struct {
	Name     string
	Migrate  MigrateFunc
	Rollback MigrateFunc
}

// Source is where migration scripts live. The file-backed source reads
// numbered scripts from a directory; the module-backed Collection resolves
// migrations registered in-process. Both satisfy the same todo/read
// contract.
type Source interface {
	// Todo lists every known migration name, ordered by zero-padded
	// sequence prefix.
	Todo() ([]string, error)
	Read(name string) (*Migration, error)
	// Compile writes a new numbered script. num fixes the sequence number;
	// pass -1 to continue after the current todo list.
	Compile(name string, forward, reverse []diff.Operation, num int) (string, error)
	// Clear removes every migration the source knows about.
	Clear() error
}

var filemask = regexp.MustCompile(`^\d{3}_[^.]+\.yaml$`)

// FileSource reads and writes numbered migration scripts in one directory.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Todo() ([]string, error) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		log.Printf("Migration directory %s does not exist, creating it.", s.Dir)
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create migrations dir: %w", err)
		}
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !filemask.MatchString(e.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileSource) Read(name string) (*Migration, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, name)
		}
		return nil, fmt.Errorf("read migration %s: %w", name, err)
	}
	doc, err := emitter.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("migration %s: %w", name, err)
	}
	mig := &Migration{Name: name}
	if len(doc.Migrate) > 0 {
		ops := doc.Migrate
		mig.Migrate = func(ctx context.Context, m *migrator.Migrator, _ database.DB, _ bool) error {
			return m.Apply(ops...)
		}
	}
	if len(doc.Rollback) > 0 {
		ops := doc.Rollback
		mig.Rollback = func(ctx context.Context, m *migrator.Migrator, _ database.DB, _ bool) error {
			return m.Apply(ops...)
		}
	}
	return mig, nil
}

func (s *FileSource) Compile(name string, forward, reverse []diff.Operation, num int) (string, error) {
	if num < 0 {
		todo, err := s.Todo()
		if err != nil {
			return "", err
		}
		num = len(todo)
	}
	full := fmt.Sprintf("%03d_%s", num+1, name)
	data, err := emitter.Render(full, forward, reverse)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, full+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write migration %s: %w", full, err)
	}
	return full, nil
}

func (s *FileSource) Clear() error {
	todo, err := s.Todo()
	if err != nil {
		return err
	}
	for _, name := range todo {
		if err := os.Remove(filepath.Join(s.Dir, name+".yaml")); err != nil {
			return fmt.Errorf("remove migration %s: %w", name, err)
		}
	}
	return nil
}

// Collection is a module-backed source: migrations are Go functions
// registered by the importing program, typically from an init function per
// migration file. It cannot compile new scripts.
type Collection struct {
	names []string
	items map[string]*Migration
}

func NewCollection() *Collection {
	return &Collection{items: map[string]*Migration{}}
}

// Register adds a named migration. Registering a name twice replaces the
// earlier entry.
func (c *Collection) Register(name string, up, down MigrateFunc) {
	if _, ok := c.items[name]; !ok {
		c.names = append(c.names, name)
	}
	c.items[name] = &Migration{Name: name, Migrate: up, Rollback: down}
}

func (c *Collection) Todo() ([]string, error) {
	names := append([]string(nil), c.names...)
	sort.Strings(names)
	return names, nil
}

func (c *Collection) Read(name string) (*Migration, error) {
	mig, ok := c.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, name)
	}
	return mig, nil
}

func (c *Collection) Compile(string, []diff.Operation, []diff.Operation, int) (string, error) {
	return "", ErrCompileUnsupported
}

// Clear is a no-op: registered migrations live in code, only the ledger is
// cleared.
func (c *Collection) Clear() error {
	return nil
}
