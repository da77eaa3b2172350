package fakeservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTestFunctions(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"empty", "", 0},
		{"plain", "def test_a():\n    pass\n\n\ndef test_b():\n    pass\n", 2},
		{"helpers ignored", "def helper():\n    pass\n\n\ndef test_a():\n    helper()\n", 1},
		{"async", "async def test_a():\n    pass\n", 1},
		{"decorated", "import pytest\n\n\n@pytest.mark.smoke\n@pytest.mark.slow\ndef test_a():\n    pass\n", 1},
		{"fixture not counted", "import pytest\n\n\n@pytest.fixture\ndef context():\n    yield {}\n", 0},
		{"test class", "class TestLogin:\n    def test_ok(self):\n        pass\n\n    def helper(self):\n        pass\n\n    @staticmethod\n    def test_static():\n        pass\n", 2},
		{"non test class", "class Login:\n    def test_ok(self):\n        pass\n", 0},
		{"nested function not counted", "def test_outer():\n    def test_inner():\n        pass\n    test_inner()\n", 1},
		{"string mention", "x = \"def test_fake(): pass\"\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountTestFunctions(context.Background(), []byte(tt.code))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderModuleCountsOnePerCase(t *testing.T) {
	cases := generateCases("Users should be able to login with email and password.", "", 7, nil)
	inputs := toInputs(cases)

	for _, fixtures := range []bool{true, false} {
		code := renderModule("test_login", inputs, fixtures)
		got, err := CountTestFunctions(context.Background(), []byte(code))
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	}
}

func TestRenderModuleDuplicateNames(t *testing.T) {
	cases := generateCases("Duplicate titles are handled", "", 2, nil)
	cases[1].ID = cases[0].ID
	cases[1].Title = cases[0].Title

	code := renderModule("test_dup", toInputs(cases), false)
	assert.Contains(t, code, "def test_tc001_happy_path():")
	assert.Contains(t, code, "def test_tc001_happy_path_2():")
}

func TestRenderModuleEscapesDocstrings(t *testing.T) {
	cases := generateCases("Quotes in titles are escaped", "", 1, nil)
	cases[0].Title = `Title with """ quotes and \ slash`
	code := renderModule("test_q", toInputs(cases), false)

	got, err := CountTestFunctions(context.Background(), []byte(code))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Contains(t, code, `\"\"\"`)
}
