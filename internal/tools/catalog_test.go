package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticResolver always reports the same current workspace.
type staticResolver struct{ path string }

func (s staticResolver) CurrentPath(fallback string) string {
	if s.path == "" {
		return fallback
	}
	return s.path
}

type memRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (m *memRecorder) RecordToolRun(_ context.Context, run Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
}

func testEnv(t *testing.T) (*Env, string) {
	t.Helper()
	root := t.TempDir()
	return &Env{DefaultRoot: root, SessionID: "s1", Log: zerolog.Nop()}, root
}

func mustArgs(t *testing.T, v map[string]any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	assert.Len(t, names, 17)
	assert.Empty(t, ValidateDisabledTools(names))
	assert.Contains(t, names, "writeFile")
	assert.Contains(t, names, "fetchUrl")
	assert.Contains(t, names, "think")
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"runShell", "fetchUrl"}, 0},
		{"one unknown", []string{"runShell", "rm_rf"}, 1},
		{"all unknown", []string{"foo", "bar"}, 2},
		{"empty list", []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ValidateDisabledTools(tt.input), tt.wantLen)
		})
	}
}

func TestNewCatalog_Disabled(t *testing.T) {
	c := NewCatalog(Options{Disabled: []string{"runShell", "runShell", "setEnv"}})

	assert.Len(t, c.Names(), 15)
	assert.False(t, c.Has("runShell"))
	assert.False(t, c.Has("setEnv"))
	assert.True(t, c.Has("readFile"))

	env, _ := testEnv(t)
	res := c.Execute(context.Background(), env, "runShell", `{"command":"echo hi"}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestTools_SortedWithSchemas(t *testing.T) {
	c := NewCatalog(Options{})
	defs := c.Tools()
	require.Len(t, defs, 17)

	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Name, defs[i].Name)
	}
	for _, def := range defs {
		assert.NotEmpty(t, def.Description, def.Name)
		assert.Equal(t, "object", def.InputSchema.Type, def.Name)
	}
}

func TestExecute_MissingRequired(t *testing.T) {
	c := NewCatalog(Options{})
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "writeFile", `{"path":"a.txt"}`)
	assert.False(t, res.Success)
	assert.Equal(t, `Invalid arguments for writeFile: missing required parameter "content"`, res.Error)
}

func TestExecute_WrongType(t *testing.T) {
	c := NewCatalog(Options{})
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "executeFile", `{"path":"a.ts","args":"--verbose"}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `parameter "args" must be array, got string`)

	res = c.Execute(context.Background(), env, "executeFile", `{"path":"a.ts","args":[1]}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `parameter "args[0]" must be string, got number`)
}

func TestExecute_MalformedJSON(t *testing.T) {
	c := NewCatalog(Options{})
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "readFile", `{"path":`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid arguments for readFile")
}

func TestExecute_DefaultsApplied(t *testing.T) {
	c := NewCatalog(Options{})
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "listFiles", "")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "No files in workspace", res.Output)
}

func TestExecute_ExecutorErrorUsesOperationType(t *testing.T) {
	c := NewCatalog(Options{})
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "readFile", `{"path":"missing.ts"}`)
	assert.False(t, res.Success)
	assert.Empty(t, res.Output)
	assert.True(t, strings.HasPrefix(res.Error, "Failed to execute read operation: "), res.Error)
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	c := NewCatalog(Options{})
	c.enabled["explode"] = toolEntry{
		def: mcp.NewTool("explode"),
		op:  "think",
		exec: func(*Catalog) executor {
			return func(context.Context, *Env, json.RawMessage) (Result, error) {
				panic("kaboom")
			}
		},
	}
	env, _ := testEnv(t)

	res := c.Execute(context.Background(), env, "explode", "{}")
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to execute think operation: kaboom", res.Error)
}

func TestExecute_RecordsRuns(t *testing.T) {
	rec := &memRecorder{}
	c := NewCatalog(Options{Recorder: rec})
	env, _ := testEnv(t)

	c.Execute(context.Background(), env, "think", `{"thought":"plan"}`)
	c.Execute(context.Background(), env, "readFile", `{"path":"nope"}`)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "think", rec.runs[0].Tool)
	assert.True(t, rec.runs[0].Success)
	assert.Equal(t, "s1", rec.runs[0].SessionID)
	assert.Equal(t, "readFile", rec.runs[1].Tool)
	assert.False(t, rec.runs[1].Success)
	assert.NotEmpty(t, rec.runs[1].Error)
}

func TestExecute_NilEnv(t *testing.T) {
	c := NewCatalog(Options{})
	res := c.Execute(context.Background(), nil, "think", `{"thought":"x"}`)
	assert.True(t, res.Success)
	assert.Equal(t, "x", res.Output)
}

func TestEnv_RootPrefersCurrentWorkspace(t *testing.T) {
	env := &Env{DefaultRoot: "/default"}
	assert.Equal(t, "/default", env.Root())

	env.Workspaces = staticResolver{}
	assert.Equal(t, "/default", env.Root())

	env.Workspaces = staticResolver{path: "/ws/current"}
	assert.Equal(t, "/ws/current", env.Root())
}

func TestResult_JSON(t *testing.T) {
	out := Result{Success: false, Output: "", Error: "boom", DurationMs: 3}.JSON()
	assert.JSONEq(t, `{"success":false,"output":"","error":"boom","durationMs":3}`, out)
}
