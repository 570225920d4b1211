package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one parsed journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Module  string
	Message string
}

// String renders the entry the way the host status panel shows it.
func (e Entry) String() string {
	if e.Module == "" {
		return fmt.Sprintf("%s %s", e.Time.Format("15:04:05"), e.Message)
	}
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05"), e.Module, e.Message)
}

// Logbook is the human-readable session journal: module switches, saves,
// loads and undo/redo steps, one line each.
type Logbook struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry attributed to module (may be empty).
func (l *Logbook) Append(level Level, module, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	module = strings.TrimSpace(module)
	if module == "" {
		module = "-"
	}
	line := fmt.Sprintf("%s %-5s %s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		module,
		strings.ReplaceAll(strings.TrimSpace(message), "\n", " "),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxEntries of the most recent entries plus the total
// number of entries in the journal.
func (l *Logbook) Tail(maxEntries int) ([]Entry, int) {
	if l == nil || maxEntries <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if entry, ok := parseLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	total := len(entries)
	if total > maxEntries {
		entries = entries[total-maxEntries:]
	}
	return entries, total
}

// Info appends an informational entry.
func (l *Logbook) Info(module, format string, args ...any) {
	l.Append(LevelInfo, module, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(module, format string, args ...any) {
	l.Append(LevelWarn, module, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(module, format string, args ...any) {
	l.Append(LevelError, module, fmt.Sprintf(format, args...))
}

func parseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{}, false
	}
	entry := Entry{Time: ts, Level: Level(fields[1]), Module: fields[2]}
	if entry.Module == "-" {
		entry.Module = ""
	}
	if len(fields) > 3 {
		entry.Message = strings.Join(fields[3:], " ")
	}
	return entry, true
}
