// Package transfercmder provides the export and import commands that move
// context entries between stores as JSON or YAML documents.
package transfercmder

import (
	"path/filepath"
	"strings"

	"github.com/papercomputeco/recall/pkg/transfer"
)

// formatFor picks the document format: the flag when given, otherwise the
// file extension, otherwise JSON.
func formatFor(flag, path string) (transfer.Format, error) {
	if flag != "" {
		return transfer.ParseFormat(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return transfer.FormatYAML, nil
	}
	return transfer.FormatJSON, nil
}
