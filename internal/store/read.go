package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cctop/cctop/internal/keyword"
	"github.com/cctop/cctop/internal/model"
)

// Filter describes the read-side filters the query engine applies.
type Filter struct {
	// Latest selects latest-per-file mode instead of the full "all" stream.
	Latest bool

	// Kinds, if non-empty and not covering all six, restricts results to
	// these kinds. An empty/full set means "no filter" (spec.md §4.5).
	Kinds map[model.Kind]bool

	// Keywords is the AND-matched token list from the keyword normalizer
	// (spec.md §4.4). Empty matches everything.
	Keywords []string
}

func (f Filter) kindFilterActive() bool {
	included := 0
	for _, include := range f.Kinds {
		if include {
			included++
		}
	}
	return len(f.Kinds) > 0 && included < len(model.Kinds)
}

// Page reads one page of events under a single read transaction, giving a
// stable snapshot for the duration of the read (spec.md §4.5, §5).
func (s *Store) Page(f Filter, limit, offset int) ([]model.Event, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	from, where, args := buildWhere(f)

	query := fmt.Sprintf(`
		SELECT e.id, e.timestamp, e.event_type, e.file_id, e.path, e.name, e.dir,
		       m.inode, m.size, m.lines, m.blocks
		FROM %s
		WHERE %s
		ORDER BY e.timestamp DESC, e.id DESC
		LIMIT ? OFFSET ?
	`, from, where)

	args = append(args, limit, offset)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("page query: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read tx: %w", err)
	}
	return events, nil
}

// Count returns the number of events currently matching the filter (not
// the page size).
func (s *Store) Count(f Filter) (int, error) {
	from, where, args := buildWhere(f)

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", from, where)

	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// buildWhere builds the FROM/WHERE shared by Page and Count. mode selects
// the "all" stream or the per-file latest-event reduction (spec.md §4.5):
// the kind filter is applied to the already-reduced row, never before, so a
// file whose latest event is filtered out disappears entirely rather than
// falling back to an earlier matching event.
func buildWhere(f Filter) (from string, where string, args []any) {
	from = `
		events e
		JOIN event_types et ON et.id = e.event_type
		JOIN files fi ON fi.id = e.file_id
		LEFT JOIN measurements m ON m.event_id = e.id
	`
	if f.Latest {
		from = `
		(SELECT file_id, MAX(id) AS id FROM events GROUP BY file_id) latest
		JOIN events e ON e.id = latest.id
		JOIN event_types et ON et.id = e.event_type
		JOIN files fi ON fi.id = e.file_id
		LEFT JOIN measurements m ON m.event_id = e.id
		`
	}

	where = "1=1"

	if f.kindFilterActive() {
		placeholders := ""
		for k, include := range f.Kinds {
			if !include {
				continue
			}
			if placeholders != "" {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, int(k))
		}
		if placeholders != "" {
			where += " AND e.event_type IN (" + placeholders + ")"
		} else {
			where += " AND 0"
		}
	}

	for _, tok := range f.Keywords {
		where += " AND (e.name LIKE ? ESCAPE '\\' OR e.dir LIKE ? ESCAPE '\\')"
		like := keyword.LikePattern(tok)
		args = append(args, like, like)
	}

	return from, where, args
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var ts int64
		var kind int
		var inode sql.NullInt64
		var size, lines, blocks sql.NullInt64

		err := rows.Scan(&ev.ID, &ts, &kind, &ev.FileID, &ev.Path, &ev.Name, &ev.Dir,
			&inode, &size, &lines, &blocks)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		ev.Timestamp = time.Unix(ts, 0)
		ev.Kind = model.Kind(kind)

		if inode.Valid {
			ev.Measurement = &model.Measurement{
				EventID: ev.ID,
				Inode:   uint64(inode.Int64),
				Size:    size.Int64,
				Lines:   lines.Int64,
				Blocks:  blocks.Int64,
			}
		}

		events = append(events, ev)
	}
	return events, rows.Err()
}
