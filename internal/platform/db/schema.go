package db

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// schemaStatements reads every .sql file under dir in name order and splits it
// into single statements.
func schemaStatements(fsys fs.FS, dir string) ([]string, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("platform/db: list schema: %w", err)
	}
	sort.Strings(names)

	var stmts []string
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("platform/db: read %s: %w", name, err)
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				stmts = append(stmts, stmt)
			}
		}
	}
	return stmts, nil
}
