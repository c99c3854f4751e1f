// Package shared holds helpers used by more than one layer of the score tool.
//
// The testutil subpackage captures slog output for assertions and builds raw
// price/volume workbooks on disk so loader, store and orchestrator tests can
// share fixtures.
package shared
