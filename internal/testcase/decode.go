package testcase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeError reports a response body that does not match the test case model.
type DecodeError struct {
	Kind string // "test cases" or "code"
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s response: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeGenerateResponse parses and validates a /testcases/generate body.
func DecodeGenerateResponse(data []byte) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := decodeObject(data, &resp, "test_cases"); err != nil {
		return nil, &DecodeError{Kind: "test cases", Err: err}
	}
	if err := resp.Validate(); err != nil {
		return nil, &DecodeError{Kind: "test cases", Err: err}
	}
	return &resp, nil
}

// DecodeCodeResponse parses and validates a /pytest/generate body.
func DecodeCodeResponse(data []byte) (*CodeResponse, error) {
	var resp CodeResponse
	if err := decodeObject(data, &resp, "code"); err != nil {
		return nil, &DecodeError{Kind: "code", Err: err}
	}
	if err := resp.Validate(); err != nil {
		return nil, &DecodeError{Kind: "code", Err: err}
	}
	return &resp, nil
}

// decodeObject unmarshals a JSON object into v after checking that the
// required top-level key is present.
func decodeObject(data []byte, v any, required string) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty body")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("not a JSON object: %w", err)
	}
	raw, ok := fields[required]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("missing %s", required)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	return nil
}
