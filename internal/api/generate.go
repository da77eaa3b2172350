package api

import (
	"context"
	"net/http"
	"sdlcpilot/internal/testcase"
	"strings"
)

// CaseOption sets optional fields of a test case generation request.
type CaseOption func(*testcase.GenerateRequest)

// WithContext adds free-text context to the requirement.
func WithContext(ctx string) CaseOption {
	return func(r *testcase.GenerateRequest) { r.Context = ctx }
}

// WithNumCases hints how many cases to generate. The service may return a
// different number.
func WithNumCases(n int) CaseOption {
	return func(r *testcase.GenerateRequest) { r.NumCases = n }
}

// WithTestTypes restricts the kinds of cases generated.
func WithTestTypes(types ...testcase.TestType) CaseOption {
	return func(r *testcase.GenerateRequest) { r.TestTypes = types }
}

// CodeOption sets optional fields of a pytest generation request.
type CodeOption func(*codeOptions)

type codeOptions struct {
	moduleName string
	outputPath string
	context    string
	fixtures   *bool
	conftest   *bool
}

// WithModuleName names the generated module.
func WithModuleName(name string) CodeOption {
	return func(o *codeOptions) { o.moduleName = name }
}

// WithOutputPath asks the service to save the generated file under path.
func WithOutputPath(path string) CodeOption {
	return func(o *codeOptions) { o.outputPath = path }
}

// WithFixtures toggles generated fixtures. Ignored by GeneratePyTestFromRequirement.
func WithFixtures(include bool) CodeOption {
	return func(o *codeOptions) { o.fixtures = &include }
}

// WithConftest toggles a generated conftest.py. Ignored by GeneratePyTestFromRequirement.
func WithConftest(include bool) CodeOption {
	return func(o *codeOptions) { o.conftest = &include }
}

// WithRequirementContext adds context to GeneratePyTestFromRequirement.
func WithRequirementContext(ctx string) CodeOption {
	return func(o *codeOptions) { o.context = ctx }
}

// ValidateRequirement is the client-side check run before any requirement
// is sent. It needs no network and its message is fixed.
func ValidateRequirement(requirement string) error {
	if strings.TrimSpace(requirement) == "" {
		return &ValidationError{Message: MsgRequirementRequired}
	}
	return nil
}

// ValidateCases is the client-side check run before test cases are sent.
func ValidateCases(cases []testcase.TestCase) error {
	if len(cases) == 0 {
		return &ValidationError{Message: MsgNoTestCases}
	}
	return nil
}

func collect(opts []CodeOption) codeOptions {
	var o codeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GenerateTestCases turns a requirement into structured test cases.
func (c *Client) GenerateTestCases(ctx context.Context, requirement string, opts ...CaseOption) (*testcase.GenerateResponse, error) {
	if err := ValidateRequirement(requirement); err != nil {
		return nil, err
	}
	req := testcase.GenerateRequest{Requirement: requirement}
	for _, opt := range opts {
		opt(&req)
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	status, data, err := c.do(ctx, http.MethodPost, EndpointGenerateTestCases, req)
	if err != nil {
		return nil, err
	}
	resp, err := testcase.DecodeGenerateResponse(data)
	if err != nil {
		return nil, c.fail(http.MethodPost, EndpointGenerateTestCases, &TransportError{
			StatusCode: status,
			Message:    err.Error(),
			Err:        err,
		})
	}
	return resp, nil
}

// GeneratePyTestFromCases turns previously generated test cases into pytest source.
func (c *Client) GeneratePyTestFromCases(ctx context.Context, cases []testcase.TestCase, opts ...CodeOption) (*testcase.CodeResponse, error) {
	if err := ValidateCases(cases); err != nil {
		return nil, err
	}
	o := collect(opts)
	req := testcase.CodeRequest{
		TestCases:       make([]testcase.CaseInput, 0, len(cases)),
		ModuleName:      o.moduleName,
		OutputPath:      o.outputPath,
		IncludeFixtures: o.fixtures,
		IncludeConftest: o.conftest,
	}
	for _, tc := range cases {
		req.TestCases = append(req.TestCases, testcase.InputFromTestCase(tc))
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return c.generateCode(ctx, EndpointGeneratePyTest, req)
}

// GeneratePyTestFromRequirement produces pytest source straight from a
// requirement, skipping the test case stage.
func (c *Client) GeneratePyTestFromRequirement(ctx context.Context, requirement string, opts ...CodeOption) (*testcase.CodeResponse, error) {
	if err := ValidateRequirement(requirement); err != nil {
		return nil, err
	}
	o := collect(opts)
	req := testcase.RequirementCodeRequest{
		Requirement: requirement,
		Context:     o.context,
		OutputPath:  o.outputPath,
		ModuleName:  o.moduleName,
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return c.generateCode(ctx, EndpointGenerateFromRequest, req)
}

func (c *Client) generateCode(ctx context.Context, endpoint string, body any) (*testcase.CodeResponse, error) {
	status, data, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	resp, err := testcase.DecodeCodeResponse(data)
	if err != nil {
		return nil, c.fail(http.MethodPost, endpoint, &TransportError{
			StatusCode: status,
			Message:    err.Error(),
			Err:        err,
		})
	}
	return resp, nil
}

// Status fetches the service's self description.
func (c *Client) Status(ctx context.Context) (*testcase.Status, error) {
	var st testcase.Status
	if err := c.Request(ctx, http.MethodGet, EndpointStatus, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
