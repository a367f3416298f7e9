// Package store persists compiled programs in SQLite, keyed by UUID and
// addressable by name or content hash.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/loom-lang/loom/pkg/bytecode"
)

// ErrNotFound indicates the requested program doesn't exist.
var ErrNotFound = errors.New("program not found")

// Entry describes one stored program.
type Entry struct {
	ID        string
	Name      string
	Hash      string // hex content hash of the serialized bytecode
	CreatedAt time.Time
}

// Store handles SQLite storage for program images.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) a program store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		hash TEXT NOT NULL,
		image BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return s, nil
}

// OpenDefault opens the store at $LOOM_DB, falling back to
// ~/.loom/programs.db.
func OpenDefault() (*Store, error) {
	dbPath := os.Getenv("LOOM_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		dir := filepath.Join(home, ".loom")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
		dbPath = filepath.Join(dir, "programs.db")
	}
	return Open(dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a program under a name, replacing any previous program with
// that name. It returns the new entry's ID.
func (s *Store) Put(name string, p bytecode.Program) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := bytecode.NewImage(name, p)
	if err != nil {
		return "", err
	}
	blob, err := bytecode.MarshalImage(img)
	if err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO programs (id, name, hash, image, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET id=excluded.id, hash=excluded.hash, image=excluded.image, created_at=excluded.created_at`,
		id, name, hex.EncodeToString(img.Hash[:]), blob, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("saving program: %w", err)
	}
	return id, nil
}

// Get loads a program by ID.
func (s *Store) Get(id string) (bytecode.Program, error) {
	return s.query("SELECT image FROM programs WHERE id = ?", id)
}

// GetByName loads a program by name.
func (s *Store) GetByName(name string) (bytecode.Program, error) {
	return s.query("SELECT image FROM programs WHERE name = ?", name)
}

func (s *Store) query(q, arg string) (bytecode.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob []byte
	if err := s.db.QueryRow(q, arg).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading program: %w", err)
	}
	img, err := bytecode.UnmarshalImage(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img.Program()
}

// List returns all stored entries, newest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, name, hash, created_at FROM programs ORDER BY created_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Hash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a program by name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM programs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
