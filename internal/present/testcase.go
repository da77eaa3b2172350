package present

import (
	"fmt"
	"sdlcpilot/internal/testcase"
	"strings"
)

// FormatTestCase renders one test case as the plain text copied to the clipboard.
func FormatTestCase(tc testcase.TestCase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test Case: %s\n", tc.ID)
	fmt.Fprintf(&b, "Title: %s\n", tc.Title)
	fmt.Fprintf(&b, "Description: %s\n", tc.Description)
	fmt.Fprintf(&b, "Priority: %s\n", tc.Priority)
	fmt.Fprintf(&b, "Type: %s\n", tc.TestType)
	b.WriteString("\nPreconditions:\n")
	for _, p := range tc.Preconditions {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	b.WriteString("\nSteps:\n")
	for i, s := range tc.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("\nExpected Result:\n")
	b.WriteString(tc.ExpectedResult)
	return strings.TrimSpace(b.String())
}

// Markdown renders a batch of test cases as a markdown document.
func Markdown(cases []testcase.TestCase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Generated Test Cases (%d)\n", len(cases))
	for _, tc := range cases {
		fmt.Fprintf(&b, "\n## %s: %s\n\n", tc.ID, tc.Title)
		fmt.Fprintf(&b, "**Priority:** %s | **Type:** %s\n\n", tc.Priority, tc.TestType)
		if tc.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", tc.Description)
		}
		if len(tc.Preconditions) > 0 {
			b.WriteString("**Preconditions:**\n\n")
			for _, p := range tc.Preconditions {
				fmt.Fprintf(&b, "- %s\n", p)
			}
			b.WriteString("\n")
		}
		b.WriteString("**Steps:**\n\n")
		for i, s := range tc.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
		fmt.Fprintf(&b, "\n**Expected Result:** %s\n", tc.ExpectedResult)
	}
	return b.String()
}
