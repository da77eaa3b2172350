package testcase

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultModuleName is the module the service generates into when none is given.
const DefaultModuleName = "test_generated"

var moduleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidModuleName reports whether name is usable as a python module name.
func ValidModuleName(name string) bool {
	return moduleNamePattern.MatchString(name)
}

// GenerateRequest asks the service for test cases derived from a requirement.
// NumCases is a hint; the service may return a different count.
type GenerateRequest struct {
	Requirement string     `json:"requirement"`
	Context     string     `json:"context,omitempty"`
	TestTypes   []TestType `json:"test_types,omitempty"`
	NumCases    int        `json:"num_cases,omitempty"`
}

// Validate checks the request before it leaves the client.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Requirement) == "" {
		return fmt.Errorf("requirement is required")
	}
	if r.NumCases < 0 {
		return fmt.Errorf("num_cases must be positive, got %d", r.NumCases)
	}
	for _, t := range r.TestTypes {
		if !t.Valid() {
			return fmt.Errorf("invalid test_type %q", t)
		}
	}
	return nil
}

// CaseInput is the wire shape of a test case sent for code generation. Only
// id, title, description and expected_result are required.
type CaseInput struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Preconditions  []string `json:"preconditions,omitempty"`
	Steps          []string `json:"steps,omitempty"`
	ExpectedResult string   `json:"expected_result"`
	Priority       Priority `json:"priority,omitempty"`
	TestType       TestType `json:"test_type,omitempty"`
}

// InputFromTestCase copies a generated test case into its code-generation shape.
func InputFromTestCase(tc TestCase) CaseInput {
	return CaseInput{
		ID:             tc.ID,
		Title:          tc.Title,
		Description:    tc.Description,
		Preconditions:  tc.Preconditions,
		Steps:          tc.Steps,
		ExpectedResult: tc.ExpectedResult,
		Priority:       tc.Priority,
		TestType:       tc.TestType,
	}
}

// Validate checks the required fields and, when set, the enumerations.
func (c *CaseInput) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("test case %s: title is required", c.ID)
	}
	if strings.TrimSpace(c.ExpectedResult) == "" {
		return fmt.Errorf("test case %s: expected_result is required", c.ID)
	}
	if c.Priority != "" && !c.Priority.Valid() {
		return fmt.Errorf("test case %s: invalid priority %q", c.ID, c.Priority)
	}
	if c.TestType != "" && !c.TestType.Valid() {
		return fmt.Errorf("test case %s: invalid test_type %q", c.ID, c.TestType)
	}
	return nil
}

// CodeRequest asks the service to turn test cases into pytest source. Unset
// optional fields fall back to the generator's defaults.
type CodeRequest struct {
	TestCases       []CaseInput `json:"test_cases"`
	ModuleName      string      `json:"module_name,omitempty"`
	OutputPath      string      `json:"output_path,omitempty"`
	IncludeFixtures *bool       `json:"include_fixtures,omitempty"`
	IncludeConftest *bool       `json:"include_conftest,omitempty"`
}

// Validate checks the request before it leaves the client.
func (r *CodeRequest) Validate() error {
	if len(r.TestCases) == 0 {
		return fmt.Errorf("test_cases must not be empty")
	}
	for i := range r.TestCases {
		if err := r.TestCases[i].Validate(); err != nil {
			return fmt.Errorf("test_cases[%d]: %w", i, err)
		}
	}
	if r.ModuleName != "" && !ValidModuleName(r.ModuleName) {
		return fmt.Errorf("invalid module_name %q", r.ModuleName)
	}
	return nil
}

// RequirementCodeRequest asks for pytest source directly from a requirement,
// bypassing the test-case stage.
type RequirementCodeRequest struct {
	Requirement string `json:"requirement"`
	Context     string `json:"context,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
	ModuleName  string `json:"module_name,omitempty"`
}

// Validate checks the request before it leaves the client.
func (r *RequirementCodeRequest) Validate() error {
	if strings.TrimSpace(r.Requirement) == "" {
		return fmt.Errorf("requirement is required")
	}
	if r.ModuleName != "" && !ValidModuleName(r.ModuleName) {
		return fmt.Errorf("invalid module_name %q", r.ModuleName)
	}
	return nil
}
