package application

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

// Schema is an embedded goose migration directory.
type Schema struct {
	FS  *embed.FS
	Dir string
}

type MigrationManager interface {
	RegisterSchema(fsys *embed.FS, dir string)
	Schemas() []Schema
	Up(ctx context.Context, db *sql.DB) error
	Down(ctx context.Context, db *sql.DB) error
	Status(ctx context.Context, db *sql.DB) error
}

func NewMigrationManager() MigrationManager {
	return &migrationManager{}
}

type migrationManager struct {
	schemas []Schema
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func (m *migrationManager) RegisterSchema(fsys *embed.FS, dir string) {
	m.schemas = append(m.schemas, Schema{FS: fsys, Dir: dir})
}

func (m *migrationManager) Schemas() []Schema {
	return m.schemas
}

func (m *migrationManager) Up(ctx context.Context, db *sql.DB) error {
	return m.each(func(s Schema) error {
		return goose.UpContext(ctx, db, s.Dir)
	})
}

func (m *migrationManager) Down(ctx context.Context, db *sql.DB) error {
	for i := len(m.schemas) - 1; i >= 0; i-- {
		s := m.schemas[i]
		if err := m.with(s, func() error { return goose.DownContext(ctx, db, s.Dir) }); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context, db *sql.DB) error {
	return m.each(func(s Schema) error {
		return goose.StatusContext(ctx, db, s.Dir)
	})
}

func (m *migrationManager) each(fn func(Schema) error) error {
	for _, s := range m.schemas {
		if err := m.with(s, func() error { return fn(s) }); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrationManager) with(s Schema, fn func() error) error {
	if _, err := fs.Stat(s.FS, s.Dir); err != nil {
		return fmt.Errorf("migrations: schema dir %q: %w", s.Dir, err)
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(s.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return fmt.Errorf("migrations: %s: %w", s.Dir, err)
	}
	return nil
}
