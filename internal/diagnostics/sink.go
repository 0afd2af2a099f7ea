package diagnostics

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"
)

// Sink receives batches of diagnostics tagged with the run that produced them.
type Sink interface {
	Write(runID string, diags []*Diagnostic) error
	Close() error
}

// Sink kinds accepted by Open.
const (
	SinkStdout = "stdout"
	SinkStderr = "stderr"
	SinkMemory = "memory"
	SinkFile   = "file"
	SinkSQLite = "sqlite"
)

// Open returns the sink named by kind. path is used by the file and sqlite sinks.
func Open(kind, path string) (Sink, error) {
	switch kind {
	case "", SinkStderr:
		return NewConsoleSink(os.Stderr), nil
	case SinkStdout:
		return NewConsoleSink(os.Stdout), nil
	case SinkMemory:
		return &MemorySink{}, nil
	case SinkFile:
		if path == "" {
			return nil, fmt.Errorf("file sink requires a path")
		}
		return OpenFileSink(path)
	case SinkSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite sink requires a path")
		}
		return OpenSQLiteSink(path)
	default:
		return nil, fmt.Errorf("unknown diagnostics sink %q", kind)
	}
}

// ConsoleSink writes one line per diagnostic; the phase tag is coloured when
// the underlying file is a terminal.
type ConsoleSink struct {
	w     io.Writer
	color bool
}

func NewConsoleSink(f *os.File) *ConsoleSink {
	return NewWriterSink(f)
}

// NewWriterSink writes to w, colouring only when w is a terminal.
func NewWriterSink(w io.Writer) *ConsoleSink {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ConsoleSink{w: w, color: color}
}

func (s *ConsoleSink) Write(runID string, diags []*Diagnostic) error {
	for _, d := range diags {
		line := d.Error()
		if s.color {
			tag := "[" + string(d.Phase) + "]"
			line = strings.Replace(line, tag, "\x1b[31m"+tag+"\x1b[0m", 1)
		}
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *ConsoleSink) Close() error { return nil }

// MemorySink keeps everything in a buffer; used for embedding and tests.
type MemorySink struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	diags []*Diagnostic
}

func (s *MemorySink) Write(runID string, diags []*Diagnostic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range diags {
		s.diags = append(s.diags, d)
		s.buf.WriteString(d.Error())
		s.buf.WriteByte('\n')
	}
	return nil
}

func (s *MemorySink) Close() error { return nil }

// String returns every line written so far.
func (s *MemorySink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Diagnostics returns the diagnostics written so far.
func (s *MemorySink) Diagnostics() []*Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// FileSink appends to a text file, prefixing each batch with its run id.
type FileSink struct {
	f *os.File
}

func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics file: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(runID string, diags []*Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(s.f, "# run %s\n", runID); err != nil {
		return err
	}
	for _, d := range diags {
		if _, err := fmt.Fprintln(s.f, d.Error()); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSink) Close() error { return s.f.Close() }

const sqliteSchema = `CREATE TABLE IF NOT EXISTS diagnostics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	file        TEXT NOT NULL,
	phase       TEXT NOT NULL,
	line        INTEGER NOT NULL,
	char_offset INTEGER NOT NULL,
	message     TEXT NOT NULL
)`

// SQLiteSink stores diagnostics as rows so runs can be queried later.
type SQLiteSink struct {
	db *sql.DB
}

func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open diagnostics db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create diagnostics table: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(runID string, diags []*Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO diagnostics (run_id, file, phase, line, char_offset, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, d := range diags {
		if _, err := stmt.Exec(runID, d.File, string(d.Phase), d.Line, d.Offset, d.Message); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of stored diagnostics for runID.
func (s *SQLiteSink) Count(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM diagnostics WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error { return s.db.Close() }
