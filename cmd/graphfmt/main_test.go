package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphfmt(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	err := run(strings.NewReader(input), &out, &errOut, args)

	return out.String(), err
}

func TestReformat(t *testing.T) {
	out, err := graphfmt(t, `{"b":1,"a":[true,null]}`)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    true,\n    null\n  ]\n}\n", out)

	out, err = graphfmt(t, "{ \"b\" : 1,\n \"a\": {} }", "-compact")
	require.NoError(t, err)
	assert.Equal(t, "{\"b\":1,\"a\":{}}\n", out)

	out, err = graphfmt(t, `[1]`, "-indent", "\t")
	require.NoError(t, err)
	assert.Equal(t, "[\n\t1\n]\n", out)
}

func TestRoundTrip(t *testing.T) {
	input := `{"b":1,"a":{"$id":"1","x":2.5},"c":{"$ref":"1"}}`

	out, err := graphfmt(t, input, "-compact", "-roundtrip")
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":{\"x\":2.5},\"b\":1,\"c\":{\"x\":2.5}}\n", out)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preserve_references: objects\n"), 0o644))

	out, err = graphfmt(t, input, "-compact", "-roundtrip", "-config", path)
	require.NoError(t, err)
	assert.Equal(t, "{\"$id\":\"1\",\"a\":{\"$id\":\"2\",\"x\":2.5},\"b\":1,\"c\":{\"$ref\":\"2\"}}\n", out)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k":"v"}`), 0o644))

	out, err := graphfmt(t, "", "-compact", path)
	require.NoError(t, err)
	assert.Equal(t, "{\"k\":\"v\"}\n", out)
}

func TestErrors(t *testing.T) {
	_, err := graphfmt(t, `{"a":1} {"b":2}`)
	require.ErrorIs(t, err, errTrailingData)

	_, err = graphfmt(t, `{"a":`)
	require.Error(t, err)

	_, err = graphfmt(t, `{}`, "-log-level", "loud")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)

	_, err = graphfmt(t, `{}`, "a.json", "b.json")
	require.ErrorAs(t, err, &exitErr)

	path := filepath.Join(t.TempDir(), "settings.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`max_depth = -1`), 0o644))

	_, err = graphfmt(t, `{}`, "-roundtrip", "-config", path)
	require.ErrorContains(t, err, "max depth must not be negative")

	out, err := graphfmt(t, "", "-help")
	require.NoError(t, err)
	assert.Empty(t, out)
}
