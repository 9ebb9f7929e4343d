package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/tepuyroraima/roster/app/roster"
)

// RosterKey is the key of the kv entry holding the json array of students
const RosterKey = "banda_show_tepuy_roraima_students"

// SQLiteStore implements persistence using a SQLite key-value table
type SQLiteStore struct {
	db   *sqlx.DB
	seed []roster.Student
	now  func() time.Time
}

// NewSQLiteStore creates a new SQLite store and its schema.
// seed is stored on first use, nil means roster.DefaultSeed.
func NewSQLiteStore(dbPath string, seed []roster.Student) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single connection serializes read-modify-write of the roster entry
	db.SetMaxOpenConns(1)

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER
	)`); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to create kv table: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	if seed == nil {
		seed = roster.DefaultSeed()
	}
	return &SQLiteStore{db: db, seed: seed, now: time.Now}, nil
}

// List returns all students in insertion order, seeding the store on first use.
// Stored elements which can't be decoded are not listed.
func (s *SQLiteStore) List(ctx context.Context) ([]roster.Student, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entries, err := s.load(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	students := make([]roster.Student, 0, len(entries))
	for _, e := range entries {
		if e.valid() {
			students = append(students, e.student)
		}
	}
	return students, nil
}

// Get returns a single student by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (roster.Student, error) {
	students, err := s.List(ctx)
	if err != nil {
		return roster.Student{}, err
	}
	for _, st := range students {
		if st.ID == id {
			return st, nil
		}
	}
	return roster.Student{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
}

// Add appends a new student with a fresh time-ordered id and enrollment date set to now
func (s *SQLiteStore) Add(ctx context.Context, d roster.Draft) (roster.Student, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return roster.Student{}, fmt.Errorf("failed to make student id: %w", err)
	}
	st := roster.Student{ID: id.String(), FechaInscripcion: s.now().UTC()}.Apply(d.Normalize())

	err = s.mutate(ctx, func(entries []rosterEntry) ([]rosterEntry, error) {
		return append(entries, rosterEntry{student: st}), nil
	})
	if err != nil {
		return roster.Student{}, fmt.Errorf("add %s: %w", st.FullName(), err)
	}
	log.Printf("[DEBUG] added student %s", st)
	return st, nil
}

// Update replaces editable fields of the student, id and enrollment date are kept
func (s *SQLiteStore) Update(ctx context.Context, id string, d roster.Draft) (roster.Student, error) {
	var updated roster.Student
	err := s.mutate(ctx, func(entries []rosterEntry) ([]rosterEntry, error) {
		for i, e := range entries {
			if e.valid() && e.student.ID == id {
				entries[i].student = e.student.Apply(d.Normalize())
				updated = entries[i].student
				return entries, nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return roster.Student{}, fmt.Errorf("update %s: %w", id, err)
	}
	log.Printf("[DEBUG] updated student %s", updated)
	return updated, nil
}

// Delete removes the student, deleting an unknown id is a no-op
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(entries []rosterEntry) ([]rosterEntry, error) {
		res := make([]rosterEntry, 0, len(entries))
		for _, e := range entries {
			if e.valid() && e.student.ID == id {
				continue
			}
			res = append(res, e)
		}
		return res, nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rosterEntry is a single element of the stored array. Elements which can't be
// decoded keep their raw json and are written back unchanged.
type rosterEntry struct {
	student roster.Student
	raw     json.RawMessage
}

func (e rosterEntry) valid() bool { return e.raw == nil }

// mutate loads the roster, applies fn and saves the result in a single transaction
func (s *SQLiteStore) mutate(ctx context.Context, fn func([]rosterEntry) ([]rosterEntry, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	entries, err := s.load(ctx, tx)
	if err != nil {
		return err
	}
	entries, err = fn(entries)
	if err != nil {
		return err
	}
	if err := s.save(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// load reads the roster entry, storing the seed if the entry does not exist yet
func (s *SQLiteStore) load(ctx context.Context, tx *sqlx.Tx) ([]rosterEntry, error) {
	var raw string
	err := tx.GetContext(ctx, &raw, "SELECT value FROM kv WHERE key = ?", RosterKey)
	if errors.Is(err, sql.ErrNoRows) {
		seed, seedErr := s.seedStudents()
		if seedErr != nil {
			return nil, seedErr
		}
		entries := make([]rosterEntry, 0, len(seed))
		for _, st := range seed {
			entries = append(entries, rosterEntry{student: st})
		}
		if err := s.save(ctx, tx, entries); err != nil {
			return nil, fmt.Errorf("failed to store seed: %w", err)
		}
		log.Printf("[INFO] roster initialized with %d sample students", len(seed))
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	return decodeRoster(raw)
}

// save writes the whole roster as a json array
func (s *SQLiteStore) save(ctx context.Context, tx *sqlx.Tx, entries []rosterEntry) error {
	items := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if !e.valid() {
			items = append(items, e.raw)
			continue
		}
		item, err := json.Marshal(e.student)
		if err != nil {
			return fmt.Errorf("failed to encode student %s: %w", e.student.ID, err)
		}
		items = append(items, item)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)",
		RosterKey, string(data), s.now().Unix()); err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}

// seedStudents returns a copy of the seed with ids assigned to entries without one
func (s *SQLiteStore) seedStudents() ([]roster.Student, error) {
	res := make([]roster.Student, 0, len(s.seed))
	for _, st := range s.seed {
		if st.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("failed to make seed id: %w", err)
			}
			st.ID = id.String()
		}
		if st.FechaInscripcion.IsZero() {
			st.FechaInscripcion = s.now().UTC()
		}
		if st.Telefono == "" {
			st.Telefono = roster.NoPhone
		}
		res = append(res, st)
	}
	return res, nil
}

// decodeRoster parses the stored json array. Elements which can't be decoded or have no id
// are kept raw, a missing telefono of legacy records gets the sentinel value.
func decodeRoster(raw string) ([]rosterEntry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	entries := make([]rosterEntry, 0, len(items))
	for i, item := range items {
		var st roster.Student
		if err := json.Unmarshal(item, &st); err != nil {
			log.Printf("[WARN] malformed student record #%d kept as is: %v", i, err)
			entries = append(entries, rosterEntry{raw: item})
			continue
		}
		if st.ID == "" {
			log.Printf("[WARN] student record #%d without id kept as is", i)
			entries = append(entries, rosterEntry{raw: item})
			continue
		}
		if st.Telefono == "" {
			st.Telefono = roster.NoPhone
		}
		entries = append(entries, rosterEntry{student: st})
	}
	return entries, nil
}
