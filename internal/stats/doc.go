// Package stats holds the NaN-aware correlation and standardisation helpers
// shared by the network models and the permutation tests.
//
// Missing values are encoded as NaN. Correlations drop any pair in which
// either value is NaN, so a map with missing regions can still be compared
// against a complete one.
package stats
