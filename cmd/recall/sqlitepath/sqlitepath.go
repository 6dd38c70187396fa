// Package sqlitepath locates the SQLite entry store shared by the recall
// commands.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

// EnvSQLite overrides every discovered location.
const EnvSQLite = "RECALL_SQLITE"

// ResolveSQLitePath returns the database path to open. Order of precedence:
//  1. override (the --sqlite flag or storage.sqlite_path)
//  2. $RECALL_SQLITE
//  3. recall.db inside an explicit config dir
//  4. an existing ./.recall/recall.db, $XDG_DATA_HOME/recall/recall.db or
//     ~/.recall/recall.db
//  5. recall.db inside the resolved .recall/ directory, created on first use
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvSQLite)); envPath != "" {
		return envPath, nil
	}

	if configDir == "" {
		for _, candidate := range sqliteCandidates() {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	return dotdir.NewManager().DatabasePath(configDir)
}

func sqliteCandidates() []string {
	candidates := []string{
		filepath.Join(".recall", dotdir.DatabaseFile),
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "recall", dotdir.DatabaseFile))
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".recall", dotdir.DatabaseFile))
	}

	return candidates
}
