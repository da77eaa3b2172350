// Package testcase defines the canonical shape of a generated test case and the
// request/response envelopes exchanged with the generation service.
package testcase

import (
	"fmt"
	"strings"
)

// Priority is the importance of a test case.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var validPriorities = map[Priority]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

// Priorities returns the accepted priorities, most important first.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	return validPriorities[p]
}

// TestType is the kind of verification a test case performs.
type TestType string

const (
	TypeFunctional  TestType = "functional"
	TypeIntegration TestType = "integration"
	TypeE2E         TestType = "e2e"
	TypeSmoke       TestType = "smoke"
	TypeRegression  TestType = "regression"
)

var validTestTypes = map[TestType]bool{
	TypeFunctional:  true,
	TypeIntegration: true,
	TypeE2E:         true,
	TypeSmoke:       true,
	TypeRegression:  true,
}

// TestTypes returns the accepted test types.
func TestTypes() []TestType {
	return []TestType{TypeFunctional, TypeIntegration, TypeE2E, TypeSmoke, TypeRegression}
}

// Valid reports whether t is one of the enumerated test types.
func (t TestType) Valid() bool {
	return validTestTypes[t]
}

// ParseTestType converts user input such as "E2E" into a TestType.
func ParseTestType(s string) (TestType, error) {
	t := TestType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid test_type %q (valid: %v)", s, TestTypes())
	}
	return t, nil
}

// TestCase is one discrete verifiable scenario produced by the generator.
type TestCase struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Preconditions  []string `json:"preconditions"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	Priority       Priority `json:"priority"`
	TestType       TestType `json:"test_type"`
}

// Validate checks that all required TestCase fields are present and that the
// enumerated fields hold known values.
func (tc *TestCase) Validate() error {
	if strings.TrimSpace(tc.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(tc.Title) == "" {
		return fmt.Errorf("test case %s: title is required", tc.ID)
	}
	if len(tc.Steps) == 0 {
		return fmt.Errorf("test case %s: steps must not be empty", tc.ID)
	}
	if strings.TrimSpace(tc.ExpectedResult) == "" {
		return fmt.Errorf("test case %s: expected_result is required", tc.ID)
	}
	if !tc.Priority.Valid() {
		return fmt.Errorf("test case %s: invalid priority %q", tc.ID, tc.Priority)
	}
	if !tc.TestType.Valid() {
		return fmt.Errorf("test case %s: invalid test_type %q", tc.ID, tc.TestType)
	}
	return nil
}

// ValidateBatch validates every case and enforces id uniqueness within the batch.
func ValidateBatch(cases []TestCase) error {
	seen := make(map[string]bool, len(cases))
	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return fmt.Errorf("test_cases[%d]: %w", i, err)
		}
		if seen[cases[i].ID] {
			return fmt.Errorf("test_cases[%d]: duplicate id %q", i, cases[i].ID)
		}
		seen[cases[i].ID] = true
	}
	return nil
}
