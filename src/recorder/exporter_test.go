package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mt5-bridge/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryExporter_WritesPayloadVerbatim(t *testing.T) {
	dir := t.TempDir()
	e := NewHistoryExporter(dir)
	e.now = func() time.Time { return fixedNow }

	payload := "time,open,high,low,close\n1,1.1,1.2,1.0,1.15\n"
	path, err := e.Export(payload, models.MExportName{Symbol: "EURUSD", Timeframe: "M1", Mode: "bars", RequestID: 4})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "EURUSD_M1_bars_req4_20261014_093005.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestHistoryExporter_RefusesOverwrite(t *testing.T) {
	e := NewHistoryExporter(t.TempDir())
	e.now = func() time.Time { return fixedNow }
	name := models.MExportName{Symbol: "EURUSD", Timeframe: "M1", Mode: "bars", RequestID: 1}

	_, err := e.Export("a", name)
	require.NoError(t, err)
	_, err = e.Export("b", name)
	assert.Error(t, err)
}
