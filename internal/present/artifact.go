// Package present turns generation responses into things a user can read,
// copy and save.
package present

import (
	"fmt"
	"os"
	"path/filepath"
	"sdlcpilot/internal/testcase"
	"strings"
)

// DefaultExtension is the source extension of generated pytest modules.
const DefaultExtension = "py"

// ConftestFileName is where generated fixtures shared by a module are saved.
const ConftestFileName = "conftest.py"

// CodeArtifact is everything the UI shows for a code generation result.
type CodeArtifact struct {
	// Clipboard is the generated source, untouched.
	Clipboard string
	// FileName is the download name, {module_name}.{ext}.
	FileName string
	// Summary reads "<n> test functions in <file>".
	Summary string
	// SavedNotice is "Saved to: <path>" when the service persisted the file, else "".
	SavedNotice string
	// Conftest is the optional generated conftest.py source.
	Conftest string
}

// FromCodeResponse maps a code generation response onto its artifacts.
// The code itself is passed through verbatim.
func FromCodeResponse(resp *testcase.CodeResponse, ext string) CodeArtifact {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = DefaultExtension
	}
	module := resp.ModuleName
	if module == "" {
		module = testcase.DefaultModuleName
	}
	fileName := module + "." + ext

	a := CodeArtifact{
		Clipboard: resp.Code,
		FileName:  fileName,
		Summary:   fmt.Sprintf("%d test functions in %s", resp.TestCount, fileName),
		Conftest:  resp.ConftestCode,
	}
	if resp.SavedTo != "" {
		a.SavedNotice = "Saved to: " + resp.SavedTo
	}
	return a
}

// WriteFile saves the downloadable file into dir, plus conftest.py when the
// response carried one, and returns the module's path.
func (a CodeArtifact) WriteFile(dir string) (string, error) {
	if a.FileName == "" || filepath.Base(a.FileName) != a.FileName {
		return "", fmt.Errorf("refusing to write %q outside %s", a.FileName, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, a.FileName)
	if err := os.WriteFile(path, []byte(a.Clipboard), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", a.FileName, err)
	}
	if a.Conftest != "" {
		if err := os.WriteFile(filepath.Join(dir, ConftestFileName), []byte(a.Conftest), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", ConftestFileName, err)
		}
	}
	return path, nil
}
