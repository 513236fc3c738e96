package relation

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Target is a file backing a relation
type Target struct {
	Name string
	Kind rune
	// Path is the first segment of the relation, under pgData
	Path string
}

// Querier runs queries, satisfied by *pgx.Conn
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetTargets resolves relations of the current database to the path of
// their first segment. Relations without storage are ignored.
func GetTargets(ctx context.Context, conn Querier, pgData string, relations []string) (targets []Target, err error) {
	rows, err := conn.Query(ctx, `SELECT C.relname, C.relkind, pg_relation_filepath(C.oid)
		FROM pg_class C
		WHERE C.relname = ANY($1) AND pg_relation_filepath(C.oid) IS NOT NULL`, pq.Array(relations))
	if err != nil {
		return nil, fmt.Errorf("error getting relation paths from pg_class: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var target Target
		var relPath string
		err = rows.Scan(&target.Name, &target.Kind, &relPath)
		if err != nil {
			return nil, fmt.Errorf("error scanning relation path: %v", err)
		}
		// pg_relation_filepath is relative to the data directory
		target.Path = filepath.Join(pgData, relPath)
		targets = append(targets, target)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading relation paths: %v", err)
	}
	sortTargets(targets, relations)
	if len(targets) < len(relations) {
		return targets, fmt.Errorf("only %d of %d relations found: %v", len(targets), len(relations), relations)
	}
	return targets, nil
}

// KindToString returns a readable relkind
func KindToString(kind rune) string {
	switch kind {
	case 'r':
		return "Relation"
	case 'i':
		return "Index"
	case 'm':
		return "Materialised View"
	case 't':
		return "TOAST"
	case 'S':
		return "Sequence"
	// Artificial kind for plain files
	case 'f':
		return "File"
	}
	return "Unknown"
}

// sortTargets keeps the order of the relations flag, the same relname may
// exist in several schemas
func sortTargets(targets []Target, relations []string) {
	slices.SortStableFunc(targets, func(a, b Target) int {
		return slices.Index(relations, a.Name) - slices.Index(relations, b.Name)
	})
}
