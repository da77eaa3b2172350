// Package fakeservice is a deterministic stand-in for the generation
// service. It speaks the same HTTP contract but derives test cases and
// pytest code from fixed templates instead of a model, which makes it
// suitable for tests and offline demos.
package fakeservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Request limits enforced by the service.
const (
	MinRequirementLength = 10
	DefaultNumCases      = 5
	MaxNumCases          = 20
	DefaultNumTests      = 5
	MaxNumTests          = 15
)

// Config describes the service instance.
type Config struct {
	App         string
	Version     string
	Environment string
	Debug       bool
	Model       string
	// OutputRoot anchors relative output_path values. Empty means the
	// process working directory.
	OutputRoot string
	// Now is the clock used for timestamps.
	Now func() time.Time
}

// Service implements the generation endpoints.
type Service struct {
	cfg Config
}

// New creates a service, filling unset Config fields.
func New(cfg Config) *Service {
	if cfg.App == "" {
		cfg.App = "AI SDLC Co-Pilot"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Model == "" {
		cfg.Model = "fakeservice-deterministic"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{cfg: cfg}
}

// Handler returns the router serving /health and /api/v1/*.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Post("/testcases/generate", s.generateTestCases)
		r.Post("/pytest/generate", s.generatePyTest)
		r.Post("/pytest/generate-from-requirement", s.generateFromRequirement)
	})
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.ServiceDebug("%s %s -> %d (%v) request_id=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), r.Header.Get("X-Request-ID"))
	})
}

func (s *Service) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, testcase.Status{
		App:         s.cfg.App,
		Version:     s.cfg.Version,
		Environment: s.cfg.Environment,
		Debug:       s.cfg.Debug,
		Timestamp:   s.cfg.Now().UTC().Format(time.RFC3339Nano),
	})
}

func checkRequirement(requirement string) error {
	if len([]rune(strings.TrimSpace(requirement))) < MinRequirementLength {
		return fmt.Errorf("requirement must be at least %d characters", MinRequirementLength)
	}
	return nil
}

func (s *Service) generateTestCases(w http.ResponseWriter, r *http.Request) {
	var req testcase.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := checkRequirement(req.Requirement); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	n := req.NumCases
	if n == 0 {
		n = DefaultNumCases
	}
	if n < 1 || n > MaxNumCases {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("num_cases must be between 1 and %d", MaxNumCases))
		return
	}
	for _, t := range req.TestTypes {
		if !t.Valid() {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid test_type %q", t))
			return
		}
	}

	cases := generateCases(req.Requirement, req.Context, n, req.TestTypes)
	logging.Service("Generated %d test cases", len(cases))
	writeJSON(w, http.StatusOK, testcase.GenerateResponse{
		Requirement: req.Requirement,
		TestCases:   cases,
		Metadata: testcase.Metadata{
			GeneratedAt: s.cfg.Now().UTC().Format(time.RFC3339),
			Model:       s.cfg.Model,
			Count:       len(cases),
		},
	})
}

func (s *Service) generatePyTest(w http.ResponseWriter, r *http.Request) {
	var req testcase.CodeRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.TestCases) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "At least one test case is required")
		return
	}
	for i, tc := range req.TestCases {
		if strings.TrimSpace(tc.Title) == "" || strings.TrimSpace(tc.ExpectedResult) == "" {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("test_cases[%d]: title and expected_result are required", i))
			return
		}
	}
	module, ok := moduleName(w, req.ModuleName)
	if !ok {
		return
	}
	fixtures := req.IncludeFixtures == nil || *req.IncludeFixtures
	conftest := req.IncludeConftest != nil && *req.IncludeConftest

	code := renderModule(module, req.TestCases, fixtures)
	var conftestSrc string
	if conftest {
		conftestSrc = conftestCode
	}
	s.respondCode(w, r, module, code, conftestSrc, req.OutputPath)
}

// requirementCodeBody adds the service-side num_tests knob.
type requirementCodeBody struct {
	testcase.RequirementCodeRequest
	NumTests int `json:"num_tests,omitempty"`
}

func (s *Service) generateFromRequirement(w http.ResponseWriter, r *http.Request) {
	var req requirementCodeBody
	if !decode(w, r, &req) {
		return
	}
	if err := checkRequirement(req.Requirement); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	n := req.NumTests
	if n == 0 {
		n = DefaultNumTests
	}
	if n < 1 || n > MaxNumTests {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("num_tests must be between 1 and %d", MaxNumTests))
		return
	}
	module, ok := moduleName(w, req.ModuleName)
	if !ok {
		return
	}

	cases := generateCases(req.Requirement, req.Context, n, nil)
	inputs := make([]testcase.CaseInput, 0, len(cases))
	for _, tc := range cases {
		inputs = append(inputs, testcase.InputFromTestCase(tc))
	}
	s.respondCode(w, r, module, renderModule(module, inputs, true), "", req.OutputPath)
}

func moduleName(w http.ResponseWriter, name string) (string, bool) {
	if name == "" {
		return testcase.DefaultModuleName, true
	}
	if !testcase.ValidModuleName(name) {
		writeError(w, http.StatusUnprocessableEntity, "module_name must match ^[a-z][a-z0-9_]*$")
		return "", false
	}
	return name, true
}

func (s *Service) respondCode(w http.ResponseWriter, r *http.Request, module, code, conftest, outputPath string) {
	count, err := CountTestFunctions(r.Context(), []byte(code))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate pytest code: "+err.Error())
		return
	}

	resp := testcase.CodeResponse{
		Code:         code,
		ModuleName:   module,
		TestCount:    count,
		ConftestCode: conftest,
	}
	if outputPath != "" {
		saved, err := s.save(outputPath, module, code, conftest)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate pytest code: "+err.Error())
			return
		}
		resp.SavedTo = saved
	}
	logging.Service("Generated %d test functions in %s.py", count, module)
	writeJSON(w, http.StatusOK, resp)
}

// save writes {module}.py (and conftest.py when present) under outputPath
// and returns the module's absolute path.
func (s *Service) save(outputPath, module, code, conftest string) (string, error) {
	dir := outputPath
	if !filepath.IsAbs(dir) && s.cfg.OutputRoot != "" {
		dir = filepath.Join(s.cfg.OutputRoot, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, module+".py")
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return "", err
	}
	if conftest != "" {
		if err := os.WriteFile(filepath.Join(dir, "conftest.py"), []byte(conftest), 0644); err != nil {
			return "", err
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryService).Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
