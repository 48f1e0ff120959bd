package logger

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel selects the log level. Accepts zerolog level names ("debug",
// "warn") or their numeric values ("0", "2").
const EnvLogLevel = "COPILOT_LOG_LEVEL"

// GetLogLevel returns the level configured in the environment, defaulting to warn.
// Interactive front-ends share the terminal with the user, so info is opt-in.
func GetLogLevel() zerolog.Level {
	raw := strings.TrimSpace(os.Getenv(EnvLogLevel))
	if raw == "" {
		return zerolog.WarnLevel
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return zerolog.Level(n)
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}

// New builds a console logger writing to w. When stateDir is non-empty,
// output is also appended to a daily log file there.
func New(w io.Writer, stateDir string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if stateDir != "" {
		if fw, err := newDailyRotatingLogWriter(stateDir); err == nil {
			output = zerolog.MultiLevelWriter(output, fw)
		}
	}

	return zerolog.New(output).
		Level(GetLogLevel()).
		With().
		Timestamp().
		Logger()
}

const (
	logFilePrefix   = "copilot-"
	logFileSuffix   = ".log"
	maxLogFileCount = 7
)

type dailyRotatingLogWriter struct {
	mu          sync.Mutex
	dir         string
	currentDate string
	file        *os.File
	now         func() time.Time
}

func newDailyRotatingLogWriter(dir string) (*dailyRotatingLogWriter, error) {
	w := &dailyRotatingLogWriter{dir: dir, now: time.Now}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *dailyRotatingLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *dailyRotatingLogWriter) rotateIfNeeded() error {
	today := w.now().Format("2006-01-02")
	if w.currentDate == today && w.file != nil {
		return nil
	}

	if w.file != nil {
		w.file.Close()
	}

	file, err := os.OpenFile(
		filepath.Join(w.dir, logFilePrefix+today+logFileSuffix),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0600,
	)
	if err != nil {
		return err
	}

	w.file = file
	w.currentDate = today

	cleanupOldLogFiles(w.dir)
	return nil
}

func (w *dailyRotatingLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

var _ io.WriteCloser = (*dailyRotatingLogWriter)(nil)

// cleanupOldLogFiles keeps the newest maxLogFileCount files. Names sort by date.
func cleanupOldLogFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, logFilePrefix) && strings.HasSuffix(name, logFileSuffix) {
			logFiles = append(logFiles, name)
		}
	}
	if len(logFiles) <= maxLogFileCount {
		return
	}

	sort.Strings(logFiles)
	for _, name := range logFiles[:len(logFiles)-maxLogFileCount] {
		os.Remove(filepath.Join(dir, name))
	}
}
