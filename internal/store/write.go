package store

import (
	"database/sql"
	"fmt"

	"github.com/cctop/cctop/internal/model"
)

// EnsureFileResult reports what EnsureFile found or created for an inode:
// the file row id, whether it already existed, and its is_active value.
type EnsureFileResult struct {
	FileID   int64
	Existed  bool
	WasActive bool
}

// EnsureFile looks up the file row for inode, creating it if absent. The
// initial is_active value is isActive (spec.md §4.3 step 1).
func (s *Store) EnsureFile(inode uint64, isActive bool) (EnsureFileResult, error) {
	var res EnsureFileResult
	var id int64
	var active bool

	err := s.db.QueryRow("SELECT id, is_active FROM files WHERE inode = ?", inode).Scan(&id, &active)
	if err == nil {
		return EnsureFileResult{FileID: id, Existed: true, WasActive: active}, nil
	}
	if err != sql.ErrNoRows {
		return res, fmt.Errorf("lookup file by inode: %w", err)
	}

	result, err := s.db.Exec("INSERT INTO files (inode, is_active) VALUES (?, ?)", inode, isActive)
	if err != nil {
		// Unique-constraint race: another writer beat us to it (spec.md
		// §4.3: "resolved by re-reading the existing row"). The collector
		// is documented as the sole writer, but this keeps EnsureFile
		// correct even when called twice for the same signal.
		var id2 int64
		var active2 bool
		if scanErr := s.db.QueryRow("SELECT id, is_active FROM files WHERE inode = ?", inode).Scan(&id2, &active2); scanErr == nil {
			return EnsureFileResult{FileID: id2, Existed: true, WasActive: active2}, nil
		}
		return res, fmt.Errorf("insert file: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return res, fmt.Errorf("last insert id: %w", err)
	}

	return EnsureFileResult{FileID: id, Existed: false, WasActive: isActive}, nil
}

// FileByInode looks up a file row by inode without creating one.
func (s *Store) FileByInode(inode uint64) (model.File, error) {
	var f model.File
	f.Inode = inode
	err := s.db.QueryRow("SELECT id, is_active FROM files WHERE inode = ?", inode).Scan(&f.ID, &f.IsActive)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, fmt.Errorf("lookup file: %w", err)
	}
	return f, nil
}

// LatestPathForFile returns the path of a file's most recent event, used by
// the classifier and the reconciler to resolve the "last known path" of a
// file being deleted (§9: file is an identity record; path is derived from
// the max-id event).
func (s *Store) LatestPathForFile(fileID int64) (string, error) {
	var path string
	err := s.db.QueryRow(
		"SELECT path FROM events WHERE file_id = ? ORDER BY id DESC LIMIT 1", fileID,
	).Scan(&path)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest path: %w", err)
	}
	return path, nil
}

// FileWithPriorDeleteAt reports whether any file has ever had a delete
// event at exactly this path — used to decide create vs. restore when the
// inode itself is unknown to the store (spec.md §4.2).
func (s *Store) FileWithPriorDeleteAt(path string) (int64, bool, error) {
	var fileID int64
	err := s.db.QueryRow(`
		SELECT file_id FROM events
		WHERE path = ? AND event_type = 4
		ORDER BY id DESC LIMIT 1
	`, path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("prior delete lookup: %w", err)
	}
	return fileID, true, nil
}

// WriteEvent is the input to InsertEvent: one event plus its optional
// measurement (spec.md §4.3).
type WriteEvent struct {
	Timestamp   int64 // unix seconds
	Kind        model.Kind
	Inode       uint64
	Path        string
	Name        string
	Dir         string
	Measurement *model.Measurement // nil for delete/move

	// KnownFileID bypasses inode-based file resolution, used for
	// reconciliation deletes (spec.md §4.2 step 3) where the original
	// inode is no longer observable on disk and the file is instead
	// already known by id (it was found active in the store).
	KnownFileID int64
}

// InsertEvent performs the full transactional insert procedure from
// spec.md §4.3: ensure the file row, skip event insertion for a no-op
// `find` on an already-known file, otherwise insert the event (and its
// measurement, if the kind carries one). Aggregates are updated by
// trigger. Returns the event id (0 for the `find` no-op case).
func (s *Store) InsertEvent(we WriteEvent) (eventID int64, fileID int64, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	isActive := we.Kind.MakesActive()

	var id int64
	var existed, wasActive bool

	if we.KnownFileID > 0 {
		row := tx.QueryRow("SELECT is_active FROM files WHERE id = ?", we.KnownFileID)
		if scanErr := row.Scan(&wasActive); scanErr != nil {
			err = fmt.Errorf("lookup known file %d: %w", we.KnownFileID, scanErr)
			return 0, 0, err
		}
		id, existed = we.KnownFileID, true
	} else {
		row := tx.QueryRow("SELECT id, is_active FROM files WHERE inode = ?", we.Inode)
		scanErr := row.Scan(&id, &wasActive)
		switch {
		case scanErr == nil:
			existed = true
		case scanErr == sql.ErrNoRows:
			res, insErr := tx.Exec("INSERT INTO files (inode, is_active) VALUES (?, ?)", we.Inode, isActive)
			if insErr != nil {
				return 0, 0, fmt.Errorf("insert file: %w", insErr)
			}
			id, err = res.LastInsertId()
			if err != nil {
				return 0, 0, fmt.Errorf("last insert id: %w", err)
			}
		default:
			return 0, 0, fmt.Errorf("lookup file: %w", scanErr)
		}
	}

	fileID = id

	if existed && we.Kind == model.KindFind {
		// spec.md §4.3 step 2: find on an already-known file is a no-op on
		// events, but still reconciles is_active.
		if wasActive != isActive {
			if _, e := tx.Exec("UPDATE files SET is_active = ? WHERE id = ?", isActive, fileID); e != nil {
				err = fmt.Errorf("reconcile is_active: %w", e)
				return 0, 0, err
			}
		}
		if err = tx.Commit(); err != nil {
			return 0, 0, fmt.Errorf("commit: %w", err)
		}
		return 0, fileID, nil
	}

	if existed && wasActive != isActive {
		if _, e := tx.Exec("UPDATE files SET is_active = ? WHERE id = ?", isActive, fileID); e != nil {
			err = fmt.Errorf("update is_active: %w", e)
			return 0, 0, err
		}
	}

	res, insErr := tx.Exec(
		"INSERT INTO events (timestamp, event_type, file_id, path, name, dir) VALUES (?, ?, ?, ?, ?, ?)",
		we.Timestamp, int(we.Kind), fileID, we.Path, we.Name, we.Dir,
	)
	if insErr != nil {
		err = fmt.Errorf("insert event: %w", insErr)
		return 0, 0, err
	}
	eventID, err = res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("last insert id: %w", err)
		return 0, 0, err
	}

	if we.Kind.HasMeasurement() && we.Measurement != nil {
		_, insErr = tx.Exec(
			"INSERT INTO measurements (event_id, inode, size, lines, blocks) VALUES (?, ?, ?, ?, ?)",
			eventID, we.Inode, we.Measurement.Size, we.Measurement.Lines, we.Measurement.Blocks,
		)
		if insErr != nil {
			err = fmt.Errorf("insert measurement: %w", insErr)
			return 0, 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}

	return eventID, fileID, nil
}

// ActiveFileIDs returns the ids of all currently-active files, used by the
// startup reconciler to find files that vanished while the collector was
// down (spec.md §4.2 step 3).
func (s *Store) ActiveFileIDs() ([]int64, error) {
	rows, err := s.db.Query("SELECT id FROM files WHERE is_active = 1")
	if err != nil {
		return nil, fmt.Errorf("query active files: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active file: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
