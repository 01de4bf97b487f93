package sql

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

type migration struct {
	order      int
	name       string
	statements []string
}

// Migrations applies schema changes to the database.
type Migrations func(Executor) error

func loadMigrations(src fs.FS, dir string) ([]migration, error) {
	var migrations []migration
	err := fs.WalkDir(src, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		prefix, _, found := strings.Cut(d.Name(), "_")
		if !found {
			return fmt.Errorf("invalid migration %s", d.Name())
		}
		order, err := strconv.Atoi(prefix)
		if err != nil {
			return fmt.Errorf("invalid migration %s: %w", d.Name(), err)
		}
		content, err := fs.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("readfile %s: %w", path, err)
		}
		m := migration{order: order, name: d.Name()}
		for _, stmt := range strings.SplitAfter(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			m.statements = append(m.statements, stmt)
		}
		migrations = append(migrations, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].order < migrations[j].order
	})
	return migrations, nil
}

func embeddedMigrations(db Executor) error {
	migrations, err := loadMigrations(embedded, "migrations")
	if err != nil {
		return err
	}
	current, err := version(db)
	if err != nil {
		return err
	}
	if len(migrations) > 0 && current > migrations[len(migrations)-1].order {
		return fmt.Errorf("%w: %d > %d", ErrTooNew, current, migrations[len(migrations)-1].order)
	}
	for _, m := range migrations {
		if m.order <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := db.Exec(stmt, nil, nil); err != nil {
				return fmt.Errorf("exec %s: %w", stmt, err)
			}
		}
		// binding values in pragma statement is not allowed
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d;", m.order), nil, nil); err != nil {
			return fmt.Errorf("update user_version to %d: %w", m.order, err)
		}
	}
	return nil
}
