package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/models"
)

// HistoryExporter writes one downloaded history payload per file.
type HistoryExporter struct {
	dir string
	now func() time.Time
}

func NewHistoryExporter(dir string) *HistoryExporter {
	return &HistoryExporter{dir: dir, now: time.Now}
}

// Export writes payload verbatim to
// <dir>/<symbol>_<timeframe>_<mode>_req<id>_<timestamp>.csv and refuses to
// overwrite an existing file.
func (e *HistoryExporter) Export(payload string, name models.MExportName) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", helpers.NewResourceError("create export dir", err)
	}

	file := fmt.Sprintf("%s_%s_%s_req%d_%s.csv",
		sanitize(name.Symbol), sanitize(name.Timeframe), sanitize(name.Mode),
		name.RequestID, e.now().Format(timestampLayout))
	path := filepath.Join(e.dir, file)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", helpers.NewResourceError("create export", err)
	}
	if _, err := f.WriteString(payload); err != nil {
		_ = f.Close()
		return "", helpers.NewResourceError("write export", err)
	}
	if err := f.Close(); err != nil {
		return "", helpers.NewResourceError("close export", err)
	}
	return path, nil
}
