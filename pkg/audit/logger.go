package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// Logger is an audit-log backend: append an Event, and later read them back
// through a Filter.
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// FileLogger appends Events as JSON-lines to a file, rotating it once it
// passes a size threshold.
type FileLogger struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig bounds a FileLogger's on-disk footprint.
type RotationConfig struct {
	MaxSize    int64 // rotate once the active file reaches this size; 0 disables rotation
	MaxBackups int   // number of rotated files to keep; the rest are deleted oldest-first
}

// NewFileLogger opens (creating if needed) path for append, under rotation.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	return &FileLogger{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Log appends event, rotating first if the active file has crossed
// rotation.MaxSize.
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 {
		info, err := l.file.Stat()
		if err == nil && info.Size() >= l.rotation.MaxSize {
			if err := l.rotate(); err != nil {
				return fmt.Errorf("rotating audit log: %w", err)
			}
		}
	}

	return l.encoder.Encode(event)
}

// Query reads the active log file line by line, returning every event
// matching filter after skipping filter.Offset matches and stopping once
// filter.Limit have been collected (0 means unbounded). Malformed lines are
// logged and skipped rather than failing the whole query.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Event{}, nil
		}
		return nil, err
	}
	defer file.Close()

	events := []*Event{}
	skipped := 0
	scanner := bufio.NewScanner(file)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		if filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}

		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			lacplog.WithField("line", lineNum).WithError(err).Warn("audit: skipping malformed log entry")
			continue
		}
		if !matches(&event, filter) {
			continue
		}

		if skipped < filter.Offset {
			skipped++
			continue
		}
		events = append(events, &event)
	}

	return events, scanner.Err()
}

// Close closes the active log file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func matches(event *Event, filter Filter) bool {
	switch {
	case filter.Operation != "" && event.Operation != filter.Operation,
		filter.Port != "" && event.Port != filter.Port,
		filter.Sport != "" && event.Sport != filter.Sport,
		!filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime),
		!filter.EndTime.IsZero() && event.Timestamp.After(filter.EndTime),
		filter.SuccessOnly && !event.Success,
		filter.FailureOnly && event.Success:
		return false
	default:
		return true
	}
}

// rotate closes the active file, renames it aside with a timestamp suffix,
// reopens path fresh, and prunes old rotated files past MaxBackups.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}

	rotatedPath := l.path + "." + time.Now().Format("20060102-150405")
	if err := os.Rename(l.path, rotatedPath); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.encoder = json.NewEncoder(file)

	if l.rotation.MaxBackups > 0 {
		l.cleanupOldFiles()
	}
	return nil
}

// cleanupOldFiles removes rotated backups of path beyond MaxBackups, oldest
// first by modification time.
func (l *FileLogger) cleanupOldFiles() {
	matches, err := filepath.Glob(l.path + ".*")
	if err != nil {
		return
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	backups := make([]backup, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path, info.ModTime()})
	}
	if len(backups) <= l.rotation.MaxBackups {
		return
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.Before(backups[j].modTime) })
	for _, b := range backups[:len(backups)-l.rotation.MaxBackups] {
		os.Remove(b.path)
	}
}

// defaultLogger holds the process-wide Logger used by the package-level Log
// and Query helpers, boxed in loggerHolder so atomic.Value always stores the
// same concrete type regardless of which Logger implementation is set.
var defaultLogger atomic.Value

type loggerHolder struct {
	logger Logger
}

// SetDefaultLogger installs logger as the target of the package-level Log
// and Query functions.
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(loggerHolder{logger: logger})
}

func getDefaultLogger() Logger {
	v := defaultLogger.Load()
	if v == nil {
		return nil
	}
	return v.(loggerHolder).logger
}

// Log appends event through the default logger. A no-op if none is set.
func Log(event *Event) error {
	l := getDefaultLogger()
	if l == nil {
		return nil
	}
	return l.Log(event)
}

// Query reads through the default logger. Returns an empty slice if none is
// set.
func Query(filter Filter) ([]*Event, error) {
	l := getDefaultLogger()
	if l == nil {
		return []*Event{}, nil
	}
	return l.Query(filter)
}
