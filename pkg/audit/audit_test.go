package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent(OpConfigLportSet)

	if event.Operation != OpConfigLportSet {
		t.Errorf("Operation = %q, want %q", event.Operation, OpConfigLportSet)
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_Chaining(t *testing.T) {
	fields := []FieldChange{{Field: "actor_key", Old: "0", New: "5"}}

	event := NewEvent(OpConfigLportSet).
		WithPort("lport(slot=0,mod=0,port=1,type=0,svlan=false)").
		WithFields(fields).
		WithSuccess().
		WithDuration(time.Second)

	if event.Port == "" {
		t.Errorf("Port should be set")
	}
	if len(event.Fields) != 1 {
		t.Errorf("Expected 1 field change, got %d", len(event.Fields))
	}
	if !event.Success {
		t.Error("Success should be true")
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent(OpConfigLportSet).WithError(errors.New("test error"))

	if event.Success {
		t.Error("Success should be false")
	}
	if event.Error != "test error" {
		t.Errorf("Error = %q", event.Error)
	}

	event2 := NewEvent(OpConfigLportSet).WithError(nil)
	if event2.Success {
		t.Error("Success should be false even with nil error")
	}
	if event2.Error != "" {
		t.Errorf("Error should be empty with nil error, got %q", event2.Error)
	}
}

func TestFileLogger_Basic(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	event := NewEvent(OpConfigSportCreate).WithSport("sport(type=1,id=1)").WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Operation != OpConfigSportCreate {
		t.Errorf("Operation = %q, want %q", events[0].Operation, OpConfigSportCreate)
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	events := []*Event{
		NewEvent(OpConfigLportSet).WithPort("lport1").WithSuccess(),
		NewEvent(OpConfigLportClear).WithPort("lport1").WithSuccess(),
		NewEvent(OpConfigSportCreate).WithSport("sport1").WithError(errors.New("failed")),
		NewEvent(OpConfigLportSet).WithPort("lport2").WithSuccess(),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	t.Run("filter by port", func(t *testing.T) {
		results, _ := logger.Query(Filter{Port: "lport1"})
		if len(results) != 2 {
			t.Errorf("Expected 2 events for lport1, got %d", len(results))
		}
	})

	t.Run("filter by operation", func(t *testing.T) {
		results, _ := logger.Query(Filter{Operation: OpConfigLportSet})
		if len(results) != 2 {
			t.Errorf("Expected 2 ConfigLportSet events, got %d", len(results))
		}
	})

	t.Run("filter by sport", func(t *testing.T) {
		results, _ := logger.Query(Filter{Sport: "sport1"})
		if len(results) != 1 {
			t.Errorf("Expected 1 event for sport1, got %d", len(results))
		}
	})

	t.Run("filter success only", func(t *testing.T) {
		results, _ := logger.Query(Filter{SuccessOnly: true})
		if len(results) != 3 {
			t.Errorf("Expected 3 successful events, got %d", len(results))
		}
	})

	t.Run("filter failure only", func(t *testing.T) {
		results, _ := logger.Query(Filter{FailureOnly: true})
		if len(results) != 1 {
			t.Errorf("Expected 1 failed event, got %d", len(results))
		}
	})

	t.Run("filter with limit", func(t *testing.T) {
		results, _ := logger.Query(Filter{Limit: 2})
		if len(results) != 2 {
			t.Errorf("Expected 2 events with limit, got %d", len(results))
		}
	})

	t.Run("filter with offset", func(t *testing.T) {
		results, _ := logger.Query(Filter{Offset: 2})
		if len(results) != 2 {
			t.Errorf("Expected 2 events with offset, got %d", len(results))
		}
	})
}

func TestFileLogger_QueryTimeFilter(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(NewEvent(OpConfigLportSet).WithSuccess())

	results, _ := logger.Query(Filter{
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if len(results) != 1 {
		t.Errorf("Expected 1 event in time range, got %d", len(results))
	}

	results, _ = logger.Query(Filter{StartTime: time.Now().Add(time.Hour)})
	if len(results) != 0 {
		t.Errorf("Expected 0 events outside time range, got %d", len(results))
	}
}

func TestFileLogger_QueryEndTimeFilter(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(NewEvent(OpConfigLportSet).WithSuccess())

	results, err := logger.Query(Filter{EndTime: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events before end time, got %d", len(results))
	}
}

func TestFileLogger_NonExistentFile(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "nonexistent", "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger should create directories: %v", err)
	}
	defer logger.Close()
}

func TestFileLogger_QueryNonExistent(t *testing.T) {
	tmpDir := t.TempDir()

	logger2, _ := NewFileLogger(filepath.Join(tmpDir, "other.log"), RotationConfig{})
	defer logger2.Close()
	os.Remove(filepath.Join(tmpDir, "other.log"))

	results, err := logger2.Query(Filter{})
	if err != nil {
		t.Errorf("Query on non-existent should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events, got %d", len(results))
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)

	if err := Log(NewEvent(OpConfigLportSet)); err != nil {
		t.Errorf("Log with nil default should not error: %v", err)
	}

	results, err := Query(Filter{})
	if err != nil {
		t.Errorf("Query with nil default should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	SetDefaultLogger(logger)

	if err := Log(NewEvent(OpConfigLportSet).WithSuccess()); err != nil {
		t.Errorf("Log failed: %v", err)
	}

	results, err = Query(Filter{})
	if err != nil {
		t.Errorf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}

	SetDefaultLogger(nil)
}

func TestFileLogger_LogRotation(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{MaxSize: 100, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 5; i++ {
		event := NewEvent(OpConfigSportCreate).WithSport("sport1").WithSuccess()
		if err := logger.Log(event); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "audit.log.*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Error("Expected rotation to create backup files")
	}
}

func TestFileLogger_RotationWithCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{MaxSize: 50, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 10; i++ {
		if err := logger.Log(NewEvent(OpConfigLportSet)); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "audit.log.*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) > 2 {
		t.Errorf("Expected at most 2 backup files, got %d", len(matches))
	}
}

func TestFileLogger_NewFileLoggerMkdirError(t *testing.T) {
	_, err := NewFileLogger("/dev/null/impossible/audit.log", RotationConfig{})
	if err == nil {
		t.Error("NewFileLogger should fail when directory creation fails")
	}
}

func TestFileLogger_NewFileLoggerOpenError(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	if err := os.Mkdir(logPath, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err := NewFileLogger(logPath, RotationConfig{})
	if err == nil {
		t.Error("NewFileLogger should fail when log path is a directory")
	}
}

func TestFileLogger_QueryMalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	content := `{"operation":"ConfigLportSet","success":true}
invalid json line
{"operation":"ConfigLportClear","success":true}
`
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test data: %v", err)
	}

	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 valid events (skipping malformed), got %d", len(results))
	}
}

func TestFileLogger_QueryOffsetBeyondEvents(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 3; i++ {
		logger.Log(NewEvent(OpConfigLportSet).WithSuccess())
	}

	results, err := logger.Query(Filter{Offset: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events with an offset beyond the event count, got %d", len(results))
	}
}

func TestFileLogger_CloseNilFile(t *testing.T) {
	logger := &FileLogger{path: "/tmp/test.log", file: nil}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() with nil file should not error: %v", err)
	}
}

func TestFileLogger_QueryReadError(t *testing.T) {
	tmpDir := t.TempDir()

	logDir := filepath.Join(tmpDir, "audit.log")
	if err := os.Mkdir(logDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	realLogPath := filepath.Join(tmpDir, "real.log")
	logger, err := NewFileLogger(realLogPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.path = logDir

	if _, err := logger.Query(Filter{}); err == nil {
		t.Error("Query should fail when trying to read a directory")
	}
}
