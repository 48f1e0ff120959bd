package db

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/tools"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndListToolRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []ToolRun{
		{ID: "01", SessionID: "a", Tool: "writeFile", Arguments: `{"path":"x"}`, Success: true, DurationMs: 3, StartedAt: base},
		{ID: "02", SessionID: "b", Tool: "readFile", Success: false, Error: "Failed to execute read operation: missing", DurationMs: 1, StartedAt: base.Add(time.Second)},
		{ID: "03", SessionID: "a", Tool: "listFiles", Success: true, StartedAt: base.Add(2 * time.Second)},
	}
	for _, run := range runs {
		if err := InsertToolRun(ctx, db, run); err != nil {
			t.Fatalf("InsertToolRun(%s) error = %v", run.ID, err)
		}
	}

	all, err := ListToolRuns(ctx, db, "", 0)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != "03" || all[2].ID != "01" {
		t.Errorf("order = %s,%s,%s, want newest first", all[0].ID, all[1].ID, all[2].ID)
	}
	if !all[2].StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", all[2].StartedAt, base)
	}
	if all[2].Arguments != `{"path":"x"}` {
		t.Errorf("Arguments = %q", all[2].Arguments)
	}
	if all[1].Success || all[1].Error == "" {
		t.Errorf("failed run not round-tripped: %+v", all[1])
	}

	sessionA, err := ListToolRuns(ctx, db, "a", 0)
	if err != nil {
		t.Fatalf("ListToolRuns(a) error = %v", err)
	}
	if len(sessionA) != 2 {
		t.Errorf("session a runs = %d, want 2", len(sessionA))
	}

	limited, err := ListToolRuns(ctx, db, "", 1)
	if err != nil {
		t.Fatalf("ListToolRuns(limit 1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "03" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestListToolRuns_Empty(t *testing.T) {
	db := openTestDB(t)

	runs, err := ListToolRuns(context.Background(), db, "nobody", 10)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("runs = %#v, want empty non-nil slice", runs)
	}
}

func TestInsertToolRun_TruncatesArguments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	big := strings.Repeat("x", maxStoredArgs*2)
	if err := InsertToolRun(ctx, db, ToolRun{ID: "big", SessionID: "s", Tool: "writeFile", Arguments: big, StartedAt: time.Now()}); err != nil {
		t.Fatalf("InsertToolRun() error = %v", err)
	}

	runs, err := ListToolRuns(ctx, db, "s", 1)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	if len(runs[0].Arguments) != maxStoredArgs {
		t.Errorf("stored %d bytes, want %d", len(runs[0].Arguments), maxStoredArgs)
	}
}

func TestInsertToolRun_TruncatesOnRuneBoundary(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// "é" is two bytes, so the cap falls inside a character.
	big := "x" + strings.Repeat("é", maxStoredArgs)
	if err := InsertToolRun(ctx, db, ToolRun{ID: "utf8", SessionID: "s", Tool: "writeFile", Arguments: big, StartedAt: time.Now()}); err != nil {
		t.Fatalf("InsertToolRun() error = %v", err)
	}

	runs, err := ListToolRuns(ctx, db, "s", 1)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	got := runs[0].Arguments
	if !utf8.ValidString(got) {
		t.Errorf("stored arguments are not valid UTF-8")
	}
	if len(got) != maxStoredArgs-1 {
		t.Errorf("stored %d bytes, want %d", len(got), maxStoredArgs-1)
	}
}

func TestJournal_RedactsEnvValues(t *testing.T) {
	db := openTestDB(t)
	journal := NewJournal(db, zerolog.Nop())
	catalog := tools.NewCatalog(tools.Options{Recorder: journal})
	env := &tools.Env{DefaultRoot: t.TempDir(), SessionID: "sess-env", Log: zerolog.Nop()}
	t.Cleanup(func() { os.Unsetenv("COPILOT_JOURNAL_SECRET") })

	catalog.Execute(context.Background(), env, "setEnv", `{"key":"COPILOT_JOURNAL_SECRET","value":"hunter2"}`)

	runs, err := ListToolRuns(context.Background(), db, "sess-env", 0)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if strings.Contains(runs[0].Arguments, "hunter2") {
		t.Errorf("secret stored in journal: %s", runs[0].Arguments)
	}
	if !strings.Contains(runs[0].Arguments, "COPILOT_JOURNAL_SECRET") || !strings.Contains(runs[0].Arguments, "[redacted]") {
		t.Errorf("arguments = %s", runs[0].Arguments)
	}
}

func TestRedactArguments(t *testing.T) {
	tests := []struct {
		tool, raw, want string
	}{
		{"writeFile", `{"path":"a","content":"b"}`, `{"path":"a","content":"b"}`},
		{"setEnv", `{"key":"K","value":"v"}`, `{"key":"K","value":"[redacted]"}`},
		{"setEnv", `not json`, ""},
	}
	for _, tt := range tests {
		if got := redactArguments(tt.tool, tt.raw); got != tt.want {
			t.Errorf("redactArguments(%q, %q) = %q, want %q", tt.tool, tt.raw, got, tt.want)
		}
	}
}

func TestJournal_RecordsCatalogRuns(t *testing.T) {
	db := openTestDB(t)
	journal := NewJournal(db, zerolog.Nop())
	catalog := tools.NewCatalog(tools.Options{Recorder: journal})
	env := &tools.Env{DefaultRoot: t.TempDir(), SessionID: "sess-1", Log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	catalog.Execute(ctx, env, "think", `{"thought":"plan"}`)
	cancel()
	catalog.Execute(ctx, env, "readFile", `{"path":"missing.ts"}`)

	runs, err := ListToolRuns(context.Background(), db, "sess-1", 0)
	if err != nil {
		t.Fatalf("ListToolRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}

	byTool := map[string]ToolRun{}
	for _, run := range runs {
		byTool[run.Tool] = run
	}
	if !byTool["think"].Success {
		t.Error("think run should be successful")
	}
	if byTool["readFile"].Success || !strings.HasPrefix(byTool["readFile"].Error, "Failed to execute read operation") {
		t.Errorf("readFile run = %+v", byTool["readFile"])
	}
	if byTool["think"].ID == byTool["readFile"].ID {
		t.Error("journal ids must be unique")
	}
}

func TestJournal_ClosedDatabaseIsLogged(t *testing.T) {
	db := openTestDB(t)
	journal := NewJournal(db, zerolog.Nop())
	db.Close()

	// Must not panic or surface the failure.
	journal.RecordToolRun(context.Background(), tools.Run{SessionID: "s", Tool: "think", StartedAt: time.Now()})
}
