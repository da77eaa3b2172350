// Package batch generates test cases for many requirements at once.
package batch

import (
	"context"
	"fmt"
	"os"
	"sdlcpilot/internal/api"
	"sdlcpilot/internal/logging"
	"sdlcpilot/internal/testcase"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Generator is the part of api.Client a batch needs.
type Generator interface {
	GenerateTestCases(ctx context.Context, requirement string, opts ...api.CaseOption) (*testcase.GenerateResponse, error)
}

// Item is one requirement in a batch file.
type Item struct {
	Name        string   `yaml:"name"`
	Requirement string   `yaml:"requirement"`
	Context     string   `yaml:"context,omitempty"`
	NumCases    int      `yaml:"num_cases,omitempty"`
	TestTypes   []string `yaml:"test_types,omitempty"`
}

// File is the on-disk batch format.
type File struct {
	Concurrency int    `yaml:"concurrency,omitempty"`
	Items       []Item `yaml:"items"`
}

// Result is the outcome of one item. Exactly one of Response and Err is set.
type Result struct {
	Name     string
	Response *testcase.GenerateResponse
	Err      error
	Duration time.Duration
}

// Load reads a batch file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a batch file and checks item names.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("batch file has no items")
	}
	seen := make(map[string]bool, len(f.Items))
	for i, it := range f.Items {
		if it.Name == "" {
			return nil, fmt.Errorf("items[%d]: name is required", i)
		}
		if seen[it.Name] {
			return nil, fmt.Errorf("items[%d]: duplicate name %q", i, it.Name)
		}
		seen[it.Name] = true
		for _, tt := range it.TestTypes {
			if _, err := testcase.ParseTestType(tt); err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, err)
			}
		}
	}
	return &f, nil
}

func (it Item) options() []api.CaseOption {
	var opts []api.CaseOption
	if it.Context != "" {
		opts = append(opts, api.WithContext(it.Context))
	}
	if it.NumCases > 0 {
		opts = append(opts, api.WithNumCases(it.NumCases))
	}
	if len(it.TestTypes) > 0 {
		types := make([]testcase.TestType, 0, len(it.TestTypes))
		for _, s := range it.TestTypes {
			tt, _ := testcase.ParseTestType(s)
			types = append(types, tt)
		}
		opts = append(opts, api.WithTestTypes(types...))
	}
	return opts
}

// Run generates every item with at most limit requests in flight. Items
// succeed or fail independently; results are returned in input order.
func Run(ctx context.Context, gen Generator, items []Item, limit int) []Result {
	if limit < 1 {
		limit = 1
	}
	timer := logging.StartTimer(logging.CategoryBatch, fmt.Sprintf("batch of %d", len(items)))
	defer timer.Stop()

	results := make([]Result, len(items))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			start := time.Now()
			resp, err := gen.GenerateTestCases(ctx, it.Requirement, it.options()...)
			results[i] = Result{Name: it.Name, Response: resp, Err: err, Duration: time.Since(start)}
			if err != nil {
				logging.Batch("%s: failed: %v", it.Name, err)
			} else {
				logging.Batch("%s: %d test cases", it.Name, len(resp.TestCases))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summarize counts successful and failed results.
func Summarize(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
