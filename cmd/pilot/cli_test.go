package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sdlcpilot/internal/api"
	"sdlcpilot/internal/config"
	"sdlcpilot/internal/fakeservice"
	"sdlcpilot/internal/handoff"
	"sdlcpilot/internal/testcase"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

const loginRequirement = "Users should be able to login with email and password."

// setupCLI points the global config at a fresh state dir and a local
// generation service, and resets every flag global.
func setupCLI(t *testing.T) (outDir string) {
	t.Helper()
	logger = zap.NewNop()

	srv := httptest.NewServer(fakeservice.New(fakeservice.Config{OutputRoot: t.TempDir()}).Handler())
	t.Cleanup(srv.Close)

	outDir = t.TempDir()
	cfg = config.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api/v1"
	cfg.StateDir = t.TempDir()
	cfg.Output.Dir = outDir
	configPath = filepath.Join(cfg.StateDir, "config.yaml")

	resetFlags()
	t.Cleanup(resetFlags)
	return outDir
}

func resetFlags() {
	casesContext, casesNum, casesTypes, casesFile, casesFormat, casesNoHandoff = "", 0, nil, "", "table", false
	codeModule, codeOutputPath, codeFixtures, codeConftest = "", "", true, false
	codeOutDir, codeNoWrite, codePrint, codeContext, codeFile = "", false, false, "", ""
	batchConcurrency = 0
	configForce = false
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := fn(cmd, args)
	return buf.String(), err
}

func TestCasesGenerateThenCodeFromCases(t *testing.T) {
	outDir := setupCLI(t)

	casesNum = 5
	casesFormat = "json"
	out, err := run(t, runCasesGenerate, loginRequirement)
	require.NoError(t, err)

	var cases []testcase.TestCase
	require.NoError(t, json.Unmarshal([]byte(out), &cases))
	require.Len(t, cases, 5)
	assert.NoError(t, testcase.ValidateBatch(cases))

	// The hand-off is visible to a later command in the same session.
	casesFormat = "text"
	out, err = run(t, runCasesShow)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Case: "+cases[0].ID)

	codeModule = "test_login"
	out, err = run(t, runCodeFromCases)
	require.NoError(t, err)
	assert.Contains(t, out, "5 test functions in test_login.py")
	assert.NotContains(t, out, "Saved to:")

	data, err := os.ReadFile(filepath.Join(outDir, "test_login.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def test_")

	// Consuming does not remove the hand-off.
	out, err = run(t, runCasesShow)
	require.NoError(t, err)
	assert.NotContains(t, out, api.MsgNoTestCases)
}

func TestCasesGenerateRejectsBlankRequirement(t *testing.T) {
	setupCLI(t)

	_, err := run(t, runCasesGenerate, "   ")
	require.Error(t, err)
	assert.Equal(t, api.MsgRequirementRequired, err.Error())
	assert.True(t, api.IsValidation(err))
}

func TestCasesGenerateNoHandoff(t *testing.T) {
	setupCLI(t)

	casesNoHandoff = true
	_, err := run(t, runCasesGenerate, loginRequirement)
	require.NoError(t, err)

	out, err := run(t, runCasesShow)
	require.NoError(t, err)
	assert.Contains(t, out, api.MsgNoTestCases)
}

func TestCasesGenerateFromFile(t *testing.T) {
	setupCLI(t)

	path := filepath.Join(t.TempDir(), "req.txt")
	require.NoError(t, os.WriteFile(path, []byte(loginRequirement), 0644))
	casesFile = path
	casesNum = 3
	casesFormat = "json"

	out, err := run(t, runCasesGenerate)
	require.NoError(t, err)
	var cases []testcase.TestCase
	require.NoError(t, json.Unmarshal([]byte(out), &cases))
	assert.Len(t, cases, 3)
}

func TestCasesGenerateUnknownType(t *testing.T) {
	setupCLI(t)

	casesTypes = []string{"fuzz"}
	_, err := run(t, runCasesGenerate, loginRequirement)
	assert.Error(t, err)
}

func TestCasesGenerateServiceError(t *testing.T) {
	setupCLI(t)

	// Passes client validation, fails the service's minimum length rule.
	_, err := run(t, runCasesGenerate, "login")
	require.Error(t, err)
	assert.False(t, api.IsValidation(err))
	assert.Equal(t, http.StatusUnprocessableEntity, api.StatusCode(err))
}

func TestCodeFromCasesWithoutHandoff(t *testing.T) {
	setupCLI(t)

	_, err := run(t, runCodeFromCases)
	require.Error(t, err)
	assert.Equal(t, api.MsgNoTestCases, err.Error())
}

func TestCodeFromRequirement(t *testing.T) {
	outDir := setupCLI(t)

	codeModule = "test_checkout"
	codePrint = true
	out, err := run(t, runCodeFromRequirement, "Checkout applies a discount code to the order total.")
	require.NoError(t, err)
	assert.Contains(t, out, "test functions in test_checkout.py")
	assert.Contains(t, out, "import pytest")

	_, err = os.Stat(filepath.Join(outDir, "test_checkout.py"))
	assert.NoError(t, err)
}

func TestCodeFromRequirementNoWrite(t *testing.T) {
	outDir := setupCLI(t)

	codeNoWrite = true
	_, err := run(t, runCodeFromRequirement, loginRequirement)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCodeFromRequirementServerSave(t *testing.T) {
	setupCLI(t)

	codeOutputPath = "generated"
	codeNoWrite = true
	out, err := run(t, runCodeFromRequirement, loginRequirement)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved to: ")
}

func TestCodeFromRequirementBlank(t *testing.T) {
	setupCLI(t)

	_, err := run(t, runCodeFromRequirement, "")
	require.Error(t, err)
	assert.Equal(t, api.MsgRequirementRequired, err.Error())
}

func TestSessionEnd(t *testing.T) {
	setupCLI(t)

	out, err := run(t, runSessionEnd)
	require.NoError(t, err)
	assert.Contains(t, out, "No active session")

	_, err = run(t, runCasesGenerate, loginRequirement)
	require.NoError(t, err)

	out, err = run(t, runSessionShow)
	require.NoError(t, err)
	assert.Contains(t, out, "Pending: 5 test cases")

	out, err = run(t, runSessionEnd)
	require.NoError(t, err)
	assert.Contains(t, out, "Ended session")

	// A fresh session starts empty.
	out, err = run(t, runCasesShow)
	require.NoError(t, err)
	assert.Contains(t, out, api.MsgNoTestCases)
}

func TestBatch(t *testing.T) {
	setupCLI(t)

	file := batchFileFor(t, `
concurrency: 2
items:
  - name: login
    requirement: Users should be able to login with email and password.
    num_cases: 2
  - name: cart
    requirement: Cart totals include VAT for EU customers.
    test_types: [regression]
  - name: short
    requirement: tiny
`)
	out, err := run(t, runBatch, file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 items failed")
	assert.Contains(t, out, "2 succeeded, 1 failed")
	assert.Contains(t, out, "FAIL  short")
}

func TestBatchAllSucceed(t *testing.T) {
	setupCLI(t)

	batchConcurrency = 1
	file := batchFileFor(t, `
items:
  - name: login
    requirement: Users should be able to login with email and password.
`)
	out, err := run(t, runBatch, file)
	require.NoError(t, err)
	assert.Contains(t, out, "OK    login")
}

func batchFileFor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigInitAndShow(t *testing.T) {
	setupCLI(t)

	out, err := run(t, runConfigInit)
	require.NoError(t, err)
	assert.Contains(t, out, configPath)

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Output.ModuleName, loaded.Output.ModuleName)

	_, err = run(t, runConfigInit)
	assert.Error(t, err, "init must not overwrite without --force")

	configForce = true
	_, err = run(t, runConfigInit)
	assert.NoError(t, err)

	out, err = run(t, runConfigShow)
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &shown))
	assert.Equal(t, cfg.API.BaseURL, shown.API.BaseURL)
}

func TestStatus(t *testing.T) {
	setupCLI(t)

	out, err := run(t, runStatus)
	require.NoError(t, err)
	assert.Contains(t, out, "AI SDLC Co-Pilot")
}

func TestStatusUnreachable(t *testing.T) {
	setupCLI(t)
	cfg.API.BaseURL = "http://127.0.0.1:1/api/v1"

	_, err := run(t, runStatus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unreachable")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	logger = zap.NewNop()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: fakeservice.New(fakeservice.Config{}).Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, func() error { return srv.Serve(ln) }) }()

	resp, err := http.Get("http://" + srv.Addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRenderCasesFormats(t *testing.T) {
	cases := []testcase.TestCase{{
		ID:             "TC001",
		Title:          "Login succeeds",
		Priority:       testcase.PriorityHigh,
		TestType:       testcase.TypeFunctional,
		Steps:          []string{"Open login page"},
		ExpectedResult: "Dashboard shown",
	}}

	for _, format := range []string{"table", "text", "json", "markdown"} {
		var buf bytes.Buffer
		require.NoError(t, renderCases(&buf, cases, format), format)
		assert.True(t, strings.Contains(buf.String(), "TC001") || strings.Contains(buf.String(), "Login succeeds"), format)
	}

	var buf bytes.Buffer
	assert.Error(t, renderCases(&buf, cases, "xml"))
}

func TestConfiguredHeadersAreSent(t *testing.T) {
	setupCLI(t)

	var mu sync.Mutex
	var team string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		team = r.Header.Get("X-Team")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testcase.Status{App: "AI SDLC Co-Pilot", Version: "0.1.0"})
	}))
	defer srv.Close()
	cfg.API.BaseURL = srv.URL
	cfg.API.Headers = map[string]string{"X-Team": "qa"}

	_, err := run(t, runStatus)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "qa", team)
}

func TestMemoryHandoffWarns(t *testing.T) {
	setupCLI(t)
	core, logs := observer.New(zap.WarnLevel)
	logger = zap.New(core)
	cfg.Handoff.Backend = "memory"

	out, err := run(t, runCasesShow)
	require.NoError(t, err)
	assert.Contains(t, out, api.MsgNoTestCases)
	assert.Equal(t, 1, logs.FilterMessageSnippet("memory").Len())

	cfg.Handoff.Backend = "sqlite"
	_, err = run(t, runCasesShow)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len(), "sqlite hand-off needs no warning")
}

// lockedBuffer lets the watch observer and the command write concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCasesWatchPublishesLatestEdit(t *testing.T) {
	setupCLI(t)
	cfg.Watch.Debounce = "50ms"

	path := filepath.Join(t.TempDir(), "requirement.txt")
	require.NoError(t, os.WriteFile(path, []byte(loginRequirement), 0644))

	id, err := handoff.LoadOrCreateSessionID(cfg.StateDir)
	require.NoError(t, err)
	published := func() string {
		store, err := handoff.Open(cfg)
		if err != nil {
			return ""
		}
		defer store.Close()
		cases, ok := store.Consume(context.Background(), id)
		if !ok || len(cases) == 0 {
			return ""
		}
		return cases[0].Description
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out lockedBuffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runCasesWatch(cmd, []string{path}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(published(), "login with email")
	}, 5*time.Second, 20*time.Millisecond, "initial content is generated")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching ")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("Administrators can reset any user's password."), 0644))
	require.NoError(t, os.WriteFile(path, []byte("Invoices are emailed to the billing contact monthly."), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(published(), "Invoices are emailed")
	}, 5*time.Second, 20*time.Millisecond, "last edit is published")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.Contains(t, published(), "Invoices are emailed", "no earlier result may overwrite the last edit")
	assert.Contains(t, out.String(), "test cases")
}

func TestCodeFromCasesWritesConftest(t *testing.T) {
	outDir := setupCLI(t)
	cfg.Output.IncludeConftest = true

	_, err := run(t, runCasesGenerate, loginRequirement)
	require.NoError(t, err)

	codeModule = "test_login"
	_, err = run(t, runCodeFromCases)
	require.NoError(t, err)

	for _, name := range []string{"test_login.py", "conftest.py"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}
