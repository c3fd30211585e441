package interfaces

import "mt5-bridge/src/models"

// -----------------------------------------------------------------------------
// IRecorder appends live ticks to a scoped file.
// -----------------------------------------------------------------------------

type IRecorder interface {
	// Start opens a new recording for symbol and returns its path.
	Start(symbol string) (string, error)

	// -----------------------------------------------------------------------------
	Record(tick models.MSnapshot) error

	// -----------------------------------------------------------------------------
	Stop() error

	// -----------------------------------------------------------------------------
	Active() bool
}

// -----------------------------------------------------------------------------
// IExporter writes one downloaded history payload to a uniquely named file.
// -----------------------------------------------------------------------------

type IExporter interface {
	Export(payload string, name models.MExportName) (string, error)
}
