package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/tools"
)

// maxStoredArgs caps how much of a call's raw arguments is kept.
const maxStoredArgs = 4096

// DefaultListLimit is used when ListToolRuns is called with limit <= 0.
const DefaultListLimit = 50

// ToolRun is one journal row.
type ToolRun struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Tool       string    `json:"tool"`
	Arguments  string    `json:"arguments,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// InsertToolRun appends a run to the journal.
func InsertToolRun(ctx context.Context, db *sql.DB, run ToolRun) error {
	args := truncateUTF8(run.Arguments, maxStoredArgs)

	query := `
		INSERT INTO tool_runs (
			id, session_id, tool, arguments, success, error, duration_ms, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		run.ID, run.SessionID, run.Tool, toNullString(args), run.Success,
		toNullString(run.Error), run.DurationMs, run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListToolRuns returns the most recent runs, newest first, optionally for one session.
func ListToolRuns(ctx context.Context, db *sql.DB, sessionID string, limit int) ([]ToolRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, session_id, tool, arguments, success, error, duration_ms, started_at
		FROM tool_runs
	`
	var params []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		params = append(params, sessionID)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	params = append(params, limit)

	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := make([]ToolRun, 0)
	for rows.Next() {
		var (
			run       ToolRun
			args, msg sql.NullString
			startedAt int64
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &run.Tool, &args, &run.Success, &msg, &run.DurationMs, &startedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		run.Arguments = args.String
		run.Error = msg.String
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a character.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// redactedArguments maps a tool name to the argument keys that are never stored.
var redactedArguments = map[string][]string{
	"setEnv": {"value"},
}

// redactArguments masks secret-bearing keys. Arguments that cannot be
// parsed are dropped for tools with redacted keys.
func redactArguments(tool, raw string) string {
	keys, ok := redactedArguments[tool]
	if !ok {
		return raw
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return ""
	}
	for _, k := range keys {
		if _, ok := args[k]; ok {
			args[k] = "[redacted]"
		}
	}
	out, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(out)
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Journal records tool runs into the database. Write failures are logged,
// never returned, so a broken journal cannot fail a conversation.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewJournal(db *sql.DB, log zerolog.Logger) *Journal {
	return &Journal{db: db, log: log, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// RecordToolRun implements tools.Recorder.
func (j *Journal) RecordToolRun(ctx context.Context, run tools.Run) {
	row := ToolRun{
		ID:         j.newID(run.StartedAt),
		SessionID:  run.SessionID,
		Tool:       run.Tool,
		Arguments:  redactArguments(run.Tool, run.Arguments),
		Success:    run.Success,
		Error:      run.Error,
		DurationMs: run.DurationMs,
		StartedAt:  run.StartedAt,
	}
	// Record even if the turn was cancelled.
	if err := InsertToolRun(context.WithoutCancel(ctx), j.db, row); err != nil {
		j.log.Warn().Err(err).Str("tool", run.Tool).Msg("failed to journal tool run")
	}
}

func (j *Journal) newID(t time.Time) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), j.entropy).String()
}
