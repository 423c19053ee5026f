// Package shared holds helpers used by more than one package.
//
// testutil provides a capturing slog handler for asserting on log output
// and hall-page markup fixtures for parser and pipeline tests.
package shared
