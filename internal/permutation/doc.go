// Package permutation generates null models for correlations between brain
// maps and evaluates them.
//
// Cortical maps are spun: both hemispheres are rotated on the sphere by the
// same random rotation (mirrored across the midline for the right
// hemisphere) and every parcel or vertex is reassigned to its rotated
// partner, which keeps the spatial autocorrelation of the map intact.
// Subcortical maps, which have no sphere, are shuffled.
//
// Each permutation is drawn from its own sub-seed taken from one master
// seed, so a given seed yields the same permutations for any worker count.
package permutation
