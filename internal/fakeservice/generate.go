package fakeservice

import (
	"fmt"
	"regexp"
	"sdlcpilot/internal/testcase"
	"strings"
	"unicode/utf8"
)

// scenarios drive the deterministic generator; case i uses scenario i mod len.
var scenarios = []struct {
	title    string
	expected string
}{
	{"Happy path", "The operation completes successfully"},
	{"Invalid input is rejected", "A validation error is shown and nothing is changed"},
	{"Missing required fields", "The user is told which fields are required"},
	{"Boundary values", "Minimum and maximum values are accepted, values outside are rejected"},
	{"Unauthorized access is denied", "Access is refused without leaking details"},
	{"Repeated submission", "The second submission has no additional effect"},
	{"Large input", "Large input is processed within limits"},
	{"Special characters", "Unicode and special characters are preserved"},
	{"Concurrent requests", "Concurrent requests do not corrupt state"},
	{"Session timeout", "An expired session requires re-authentication"},
	{"Error message clarity", "Errors explain what went wrong and how to fix it"},
	{"Audit trail", "The action is recorded in the audit log"},
	{"Keyboard accessibility", "The flow can be completed with the keyboard only"},
	{"Recovery after failure", "The system recovers after a dependency failure"},
	{"Response time", "The operation completes within the agreed time"},
	{"Localized messages", "Messages are shown in the user's language"},
	{"Data persistence", "Saved data is still present after a restart"},
	{"Cancel midway", "Cancelling leaves no partial changes"},
	{"Whitespace trimming", "Leading and trailing whitespace is ignored"},
	{"Previously fixed defect", "The earlier defect does not reappear"},
}

// subject shortens a requirement to its first sentence for use in text.
func subject(requirement string) string {
	s := strings.TrimSpace(requirement)
	if i := strings.IndexAny(s, "\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(strings.TrimSpace(s), ".!?")
	if utf8.RuneCountInString(s) > 80 {
		s = string([]rune(s)[:80]) + "..."
	}
	return s
}

func generateCases(requirement, context string, n int, types []testcase.TestType) []testcase.TestCase {
	if len(types) == 0 {
		types = testcase.TestTypes()
	}
	priorities := testcase.Priorities()
	subj := subject(requirement)

	cases := make([]testcase.TestCase, 0, n)
	for i := 0; i < n; i++ {
		sc := scenarios[i%len(scenarios)]
		pre := []string{"The system under test is running"}
		if context != "" {
			pre = append(pre, "Context: "+subject(context))
		}
		cases = append(cases, testcase.TestCase{
			ID:            fmt.Sprintf("TC%03d", i+1),
			Title:         sc.title,
			Description:   fmt.Sprintf("%s for: %s", sc.title, subj),
			Preconditions: pre,
			Steps: []string{
				"Prepare the data needed for: " + subj,
				"Exercise the scenario: " + strings.ToLower(sc.title),
				"Observe the result",
			},
			ExpectedResult: sc.expected,
			Priority:       priorities[i%len(priorities)],
			TestType:       types[i%len(types)],
		})
	}
	return cases
}

var nonIdent = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = nonIdent.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "_")
	}
	return s
}

func docstring(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"""`, `\"\"\"`)
}

func comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// renderModule emits one pytest function per case.
func renderModule(module string, cases []testcase.CaseInput, fixtures bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\"\"\"Tests for %s.\n\nGenerated from %d test cases.\n\"\"\"\n\nimport pytest\n", module, len(cases))

	if fixtures {
		b.WriteString(`

@pytest.fixture
def context():
    """Shared state for a single test."""
    state = {}
    yield state
    state.clear()
`)
	}

	seen := make(map[string]int)
	for _, tc := range cases {
		name := "test_" + slug(tc.ID)
		if t := slug(tc.Title); t != "" {
			name += "_" + t
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		b.WriteString("\n\n")
		if tc.TestType != "" {
			fmt.Fprintf(&b, "@pytest.mark.%s\n", tc.TestType)
		}
		arg := ""
		if fixtures {
			arg = "context"
		}
		fmt.Fprintf(&b, "def %s(%s):\n", name, arg)
		fmt.Fprintf(&b, "    \"\"\"%s: %s\n\n    Expected: %s\n    \"\"\"\n", tc.ID, docstring(comment(tc.Title)), docstring(comment(tc.ExpectedResult)))
		if len(tc.Preconditions) > 0 {
			b.WriteString("    # Preconditions:\n")
			for _, p := range tc.Preconditions {
				fmt.Fprintf(&b, "    #   - %s\n", comment(p))
			}
		}
		for i, s := range tc.Steps {
			fmt.Fprintf(&b, "    # Step %d: %s\n", i+1, comment(s))
		}
		fmt.Fprintf(&b, "    pytest.skip(\"not implemented: %s\")\n", slug(tc.ID))
	}
	return b.String()
}

const conftestCode = `import pytest


@pytest.fixture(scope="session")
def base_url():
    """Root URL of the system under test."""
    return "http://localhost:8000"


def pytest_configure(config):
    for marker in ("functional", "integration", "e2e", "smoke", "regression"):
        config.addinivalue_line("markers", marker)
`
