package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// storeOpenTimeout caps the startup retry loop for opening the database.
	storeOpenTimeout = 30 * time.Second
)
