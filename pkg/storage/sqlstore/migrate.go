package sqlstore

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// gooseMu serializes migrations; goose keeps its dialect and base FS in
// package globals.
var gooseMu sync.Mutex

// Migrate applies the embedded goose migrations found in dir of fsys.
func Migrate(db *sql.DB, dialect Dialect, fsys fs.FS, dir string, logger *slog.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	goose.SetLogger(&gooseLogger{logger: logger})

	if err := goose.SetDialect(dialect.GooseName()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// gooseLogger adapts slog to goose's Logger interface.
type gooseLogger struct {
	logger *slog.Logger
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(fmt.Sprintf(format, v...))
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.logger.Debug(fmt.Sprintf(format, v...))
}
