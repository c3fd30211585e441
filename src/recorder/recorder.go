package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/models"
)

const timestampLayout = "20060102_150405"

var header = []string{"Time", "Bid", "Ask", "Volume"}

// flushEvery bounds how many rows may sit in the writer buffer.
const flushEvery = 50

// -----------------------------------------------------------------------------
// TickRecorder appends live ticks to <dir>/<symbol>_ticks_<timestamp>.csv.
// Not safe for concurrent use; the bridge state owns it.
// -----------------------------------------------------------------------------

type TickRecorder struct {
	dir     string
	now     func() time.Time
	file    *os.File
	writer  *csv.Writer
	path    string
	pending int
}

func NewTickRecorder(dir string) *TickRecorder {
	return &TickRecorder{dir: dir, now: time.Now}
}

// -----------------------------------------------------------------------------

// Start opens a fresh recording. A recording already in progress is closed.
func (r *TickRecorder) Start(symbol string) (string, error) {
	if r.Active() {
		if err := r.Stop(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", helpers.NewResourceError("create recording dir", err)
	}

	name := fmt.Sprintf("%s_ticks_%s.csv", sanitize(symbol), r.now().Format(timestampLayout))
	path := filepath.Join(r.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", helpers.NewResourceError("open recording", err)
	}

	w := csv.NewWriter(f)
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return "", helpers.NewResourceError("write recording header", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return "", helpers.NewResourceError("write recording header", err)
		}
	}

	r.file = f
	r.writer = w
	r.path = path
	r.pending = 0
	return path, nil
}

// -----------------------------------------------------------------------------

// Record appends one row. Rows are flushed in batches and on Stop.
func (r *TickRecorder) Record(tick models.MSnapshot) error {
	if !r.Active() {
		return helpers.NewResourceError("record", fmt.Errorf("no recording in progress"))
	}

	row := []string{
		strconv.FormatInt(tick.Time, 10),
		strconv.FormatFloat(tick.Bid, 'f', -1, 64),
		strconv.FormatFloat(tick.Ask, 'f', -1, 64),
		strconv.FormatUint(tick.Volume, 10),
	}
	if err := r.writer.Write(row); err != nil {
		return helpers.NewResourceError("write recording", err)
	}

	r.pending++
	if r.pending >= flushEvery {
		r.pending = 0
		r.writer.Flush()
		if err := r.writer.Error(); err != nil {
			return helpers.NewResourceError("flush recording", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop flushes and closes the current file. Stopping twice is a no-op.
func (r *TickRecorder) Stop() error {
	if !r.Active() {
		return nil
	}

	r.writer.Flush()
	flushErr := r.writer.Error()
	closeErr := r.file.Close()

	r.file = nil
	r.writer = nil
	r.pending = 0

	if flushErr != nil {
		return helpers.NewResourceError("flush recording", flushErr)
	}
	if closeErr != nil {
		return helpers.NewResourceError("close recording", closeErr)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *TickRecorder) Active() bool {
	return r.file != nil
}

// Path returns the file of the current or last recording.
func (r *TickRecorder) Path() string {
	return r.path
}

// -----------------------------------------------------------------------------

// sanitize keeps a name component from escaping the target directory.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
