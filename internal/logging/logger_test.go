package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestAllCategoriesLog tests that all categories create log files when debug mode is on
func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{DebugMode: true, Level: "debug", Dir: dir}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer Initialize(Options{})

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	API("calling %s", "/status")
	APIDebug("debug detail %d", 1)
	Handoff("published %d cases", 5)
	Flow("flow state %s", "submitting")
	Watch("watching %s", "req.md")
	Batch("batch of %d", 3)
	Service("serving on %s", "127.0.0.1:0")
	CloseAll()

	for _, cat := range []Category{CategoryBoot, CategoryAPI, CategoryHandoff, CategoryFlow, CategoryWatch, CategoryBatch, CategoryService} {
		path := filepath.Join(dir, string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Expected log file for category %s: %v", cat, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("Log file for category %s is empty", cat)
		}
	}

	data, _ := os.ReadFile(filepath.Join(dir, "api.log"))
	if !strings.Contains(string(data), "debug detail 1") {
		t.Errorf("Expected debug entry in api.log, got %q", data)
	}
}

func TestDisabledCategoryAndProductionMode(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		DebugMode:  true,
		Level:      "info",
		JSONFormat: true,
		Dir:        dir,
		Categories: map[string]bool{"flow": false},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryFlow) {
		t.Error("flow should be disabled")
	}
	if !IsCategoryEnabled(CategoryAPI) {
		t.Error("unlisted categories default to enabled")
	}

	Flow("should not be written")
	APIDebug("below info level")
	API("visible")
	CloseAll()

	if _, err := os.Stat(filepath.Join(dir, "flow.log")); !os.IsNotExist(err) {
		t.Errorf("flow.log should not exist, stat err=%v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "api.log"))
	if err != nil {
		t.Fatalf("read api.log: %v", err)
	}
	if strings.Contains(string(data), "below info level") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(string(data), `"msg":"visible"`) {
		t.Errorf("expected JSON entry, got %q", data)
	}

	// Production mode: nothing is created.
	prodDir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(Options{Dir: prodDir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	API("ignored")
	if _, err := os.Stat(prodDir); !os.IsNotExist(err) {
		t.Error("production mode should not create the log directory")
	}
}

func TestInitializeRequiresDirInDebugMode(t *testing.T) {
	if err := Initialize(Options{DebugMode: true}); err == nil {
		t.Error("expected error without a log directory")
	}
	_ = Initialize(Options{})
}

func TestConcurrentGet(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{DebugMode: true, Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Initialize(Options{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Get(CategoryAPI).With("worker", i).Info("hello from %d", i)
		}(i)
	}
	wg.Wait()

	if Get(CategoryAPI) != Get(CategoryAPI) {
		t.Error("expected cached logger per category")
	}
}

func TestTimerStopWithThreshold(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{DebugMode: true, Level: "info", Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Initialize(Options{})

	StartTimer(CategoryAPI, "POST /slow").StopWithThreshold(0)
	StartTimer(CategoryAPI, "POST /fast").StopWithThreshold(time.Hour)
	Boot("boot line")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "api.log"))
	if err != nil {
		t.Fatalf("read api.log: %v", err)
	}
	if !strings.Contains(string(data), "POST /slow slow") {
		t.Errorf("expected slow warning, got %q", data)
	}
	if strings.Contains(string(data), "POST /fast") {
		t.Errorf("fast request must stay at debug level, got %q", data)
	}
	boot, err := os.ReadFile(filepath.Join(dir, "boot.log"))
	if err != nil || !strings.Contains(string(boot), "boot line") {
		t.Errorf("expected boot line, err=%v data=%q", err, boot)
	}
}
