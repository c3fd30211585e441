package interfaces

import "mt5-bridge/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares bridge views with the presentation layer.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast stores the view and pushes it to connected clients.
	// It must never block the caller.
	Broadcast(view models.MBridgeView)

	// -----------------------------------------------------------------------------
	// UpdateView stores the view without broadcasting
	UpdateView(view models.MBridgeView)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
