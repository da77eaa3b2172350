package testcase

import (
	"fmt"
	"strings"
)

// Metadata describes one generation run.
type Metadata struct {
	GeneratedAt string `json:"generated_at"`
	Model       string `json:"model"`
	Count       int    `json:"count"`
}

// GenerateResponse carries the test cases generated for a requirement.
type GenerateResponse struct {
	Requirement string     `json:"requirement"`
	TestCases   []TestCase `json:"test_cases"`
	Metadata    Metadata   `json:"metadata"`
}

// Validate enforces the response invariants: every case is valid, ids are
// unique and metadata.count matches the number of cases.
func (r *GenerateResponse) Validate() error {
	if err := ValidateBatch(r.TestCases); err != nil {
		return err
	}
	if r.Metadata.Count != len(r.TestCases) {
		return fmt.Errorf("metadata.count is %d but %d test cases were returned", r.Metadata.Count, len(r.TestCases))
	}
	return nil
}

// CodeResponse carries generated pytest source. TestCount is authoritative from
// the service and is not recounted client-side.
type CodeResponse struct {
	Code         string `json:"code"`
	ModuleName   string `json:"module_name"`
	TestCount    int    `json:"test_count"`
	ConftestCode string `json:"conftest_code,omitempty"`
	SavedTo      string `json:"saved_to,omitempty"`
}

// Validate checks the fields the client relies on.
func (r *CodeResponse) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code is required")
	}
	if r.ModuleName != "" && !ValidModuleName(r.ModuleName) {
		return fmt.Errorf("invalid module_name %q", r.ModuleName)
	}
	if r.TestCount < 0 {
		return fmt.Errorf("test_count must not be negative, got %d", r.TestCount)
	}
	return nil
}

// Status is the service's self description returned by GET /status.
type Status struct {
	App         string `json:"app"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
	Timestamp   string `json:"timestamp"`
}
