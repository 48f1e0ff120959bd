package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tryandromeda/copilot/internal/errors"
)

// Result is what a tool invocation reports back to the model.
type Result struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// JSON encodes the result as the tool message content.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"output":"","error":%q}`, err.Error())
	}
	return string(b)
}

// executor runs one tool against validated arguments. A returned error is
// reported as a failed operation of the tool's type.
type executor func(ctx context.Context, env *Env, args json.RawMessage) (Result, error)

// toolEntry pairs a tool definition with its operation type and an executor factory.
type toolEntry struct {
	def  mcp.Tool
	op   string
	exec func(*Catalog) executor
}

// toolRegistry maps tool names to their definitions and executor factories.
var toolRegistry = map[string]toolEntry{
	"writeFile":   {def: writeFileDef, op: "write", exec: func(c *Catalog) executor { return c.writeFile }},
	"readFile":    {def: readFileDef, op: "read", exec: func(c *Catalog) executor { return c.readFile }},
	"appendFile":  {def: appendFileDef, op: "append", exec: func(c *Catalog) executor { return c.appendFile }},
	"deleteFile":  {def: deleteFileDef, op: "delete", exec: func(c *Catalog) executor { return c.deleteFile }},
	"listFiles":   {def: listFilesDef, op: "list", exec: func(c *Catalog) executor { return c.listFiles }},
	"copyFile":    {def: copyFileDef, op: "copy", exec: func(c *Catalog) executor { return c.copyFile }},
	"moveFile":    {def: moveFileDef, op: "move", exec: func(c *Catalog) executor { return c.moveFile }},
	"executeFile": {def: executeFileDef, op: "execute", exec: func(c *Catalog) executor { return c.executeFile }},
	"runAndDebug": {def: runAndDebugDef, op: "execute", exec: func(c *Catalog) executor { return c.runAndDebug }},
	"getEnv":      {def: getEnvDef, op: "env", exec: func(c *Catalog) executor { return c.getEnv }},
	"setEnv":      {def: setEnvDef, op: "env", exec: func(c *Catalog) executor { return c.setEnv }},
	"removeEnv":   {def: removeEnvDef, op: "env", exec: func(c *Catalog) executor { return c.removeEnv }},
	"listEnv":     {def: listEnvDef, op: "env", exec: func(c *Catalog) executor { return c.listEnv }},
	"fetchUrl":    {def: fetchURLDef, op: "fetch", exec: func(c *Catalog) executor { return c.fetchURL }},
	"runShell":    {def: runShellDef, op: "shell", exec: func(c *Catalog) executor { return c.runShell }},
	"typeCheck":   {def: typeCheckDef, op: "typecheck", exec: func(c *Catalog) executor { return c.typeCheck }},
	"think":       {def: thinkDef, op: "think", exec: func(c *Catalog) executor { return c.think }},
}

// AllToolNames returns every known tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names that are not known tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Options configures a Catalog.
type Options struct {
	// RuntimeCommand runs code files as "<cmd> run <file> args...".
	RuntimeCommand string

	// TypeCheckCommand is the command and leading args for typeCheck.
	TypeCheckCommand []string

	// Disabled tools are left out of the catalog.
	Disabled []string

	// HTTPClient serves fetchUrl. Nil uses a client with a one minute timeout.
	HTTPClient *http.Client

	// Recorder, when set, is told about every executed call.
	Recorder Recorder
}

// Recorder observes executed tool calls.
type Recorder interface {
	RecordToolRun(ctx context.Context, run Run)
}

// Run describes one executed tool call.
type Run struct {
	SessionID  string
	Tool       string
	Arguments  string
	Success    bool
	Error      string
	DurationMs int64
	StartedAt  time.Time
}

// Catalog is the fixed set of tools the model may call.
// It holds no per-call state and is safe for concurrent use.
type Catalog struct {
	opts    Options
	enabled map[string]toolEntry
}

// NewCatalog builds a catalog without the disabled tools.
func NewCatalog(opts Options) *Catalog {
	if opts.RuntimeCommand == "" {
		opts.RuntimeCommand = "andromeda"
	}
	if len(opts.TypeCheckCommand) == 0 {
		opts.TypeCheckCommand = []string{"deno", "check"}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Minute}
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = true
	}

	c := &Catalog{opts: opts, enabled: make(map[string]toolEntry)}
	for name, entry := range toolRegistry {
		if !disabled[name] {
			c.enabled[name] = entry
		}
	}
	return c
}

// Names returns the enabled tool names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.enabled))
	for name := range c.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the enabled tool definitions, sorted by name.
func (c *Catalog) Tools() []mcp.Tool {
	names := c.Names()
	defs := make([]mcp.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, c.enabled[name].def)
	}
	return defs
}

// Has reports whether name is an enabled tool.
func (c *Catalog) Has(name string) bool {
	_, ok := c.enabled[name]
	return ok
}

// Execute validates the raw JSON arguments and runs the named tool.
// Failures of any kind come back as an unsuccessful Result, never as a panic.
func (c *Catalog) Execute(ctx context.Context, env *Env, name, rawArgs string) Result {
	if env == nil {
		env = &Env{}
	}
	start := time.Now()
	res := c.execute(ctx, env, name, rawArgs)
	res.DurationMs = time.Since(start).Milliseconds()

	log := env.Log.With().Str("tool", name).Str("session", env.SessionID).Int64("duration_ms", res.DurationMs).Logger()
	if res.Success {
		log.Debug().Msg("tool call succeeded")
	} else {
		log.Warn().Str("error", res.Error).Msg("tool call failed")
	}

	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordToolRun(ctx, Run{
			SessionID:  env.SessionID,
			Tool:       name,
			Arguments:  rawArgs,
			Success:    res.Success,
			Error:      res.Error,
			DurationMs: res.DurationMs,
			StartedAt:  start,
		})
	}
	return res
}

func (c *Catalog) execute(ctx context.Context, env *Env, name, rawArgs string) (res Result) {
	entry, ok := c.enabled[name]
	if !ok {
		return Result{Error: fmt.Sprintf("unknown tool %q", name)}
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Result{Error: fmt.Sprintf("Invalid arguments for %s: arguments must be a JSON object: %v", name, err)}
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	if err := validateArgs(entry.def, args); err != nil {
		return Result{Error: fmt.Sprintf("Invalid arguments for %s: %v", name, err)}
	}

	validated, err := json.Marshal(args)
	if err != nil {
		return Result{Error: errors.NewToolExecution(entry.op, err).Message}
	}

	defer func() {
		if r := recover(); r != nil {
			env.Log.Error().Str("tool", name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("tool executor panicked")
			res = Result{Error: errors.NewToolExecution(entry.op, fmt.Errorf("%v", r)).Message}
		}
	}()

	res, err = entry.exec(c)(ctx, env, validated)
	if err != nil {
		return Result{Error: errors.NewToolExecution(entry.op, err).Message}
	}
	return res
}

func okResult(output string) (Result, error) {
	return Result{Success: true, Output: output}, nil
}
