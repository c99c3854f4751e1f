// Package app wires the score engine into runnable programs.
//
// Application is the read-only HTTP API: it resolves paths, loads the
// category file map, initialises OpenTelemetry and mounts the handlers of
// the transport/http package behind the middleware chain
//
//	RequestID → RealIP → OTel → Logger → Recoverer → RateLimiter → SecurityHeaders
//
// Runner builds the operations manager a batch scoring run uses: metric
// specs from configuration, one engine shared by every step, one workbook
// store, and engine metrics recorded through OpenTelemetry.
//
// # Usage
//
//	cfg, err := config.Load("")
//	...
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
