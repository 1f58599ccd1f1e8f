// Package db embeds the SQL migrations for the Postgres storage backend.
package db

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migration is a single forward migration.
type Migration struct {
	Name string
	SQL  string
}

// Up returns the forward migrations in lexical order.
func Up() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*_*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		payload, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{
			Name: strings.TrimPrefix(name, "migrations/"),
			SQL:  string(payload),
		})
	}
	return out, nil
}
