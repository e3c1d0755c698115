// Package common provides shared constants, error kinds, and the
// application logger used across nordctl.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: provider endpoints, timeouts, file and directory names
//   - Errors: sentinel error kinds checked with errors.Is
//   - Logging: leveled logger with optional file output
//
// The package is dependency-free within the module: every other package
// imports common, never the other way around.
package common
