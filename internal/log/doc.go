// Package log is the leveled logger used across enigma.
//
// It wraps a uni-logger LeveledLogger behind package level functions so that
// library packages can emit diagnostics without holding a logger reference.
// User-facing output does not go through this package; commands print to
// stdout via the output package and use log for debug and warning traces on
// stderr.
package log
