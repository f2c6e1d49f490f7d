// Package datasets loads the ENIGMA data layout from a data directory.
//
// The layout mirrors the toolbox's bundled data:
//
//	parcellations/{name}_{scale}_conte69.csv        vertex labels
//	parcellations/{name}_conte69.csv                vertex labels (atlas)
//	surfaces/conte69_32k_{lh,rh}[_{name}]_mask.csv  vertex masks
//	surfaces/conte69_32k_{lh,rh}[_sphere].gii       cortical surfaces
//	surfaces/fsa5.pial.{lh,rh}.gii                  fsaverage5 surfaces
//	surfaces/sctx_{lh,rh}.gii                       subcortical surfaces
//	matrices/main_group/{feature}.csv               vertex features
//	matrices/hcp_connectivity/{struc,func}{Matrix,Labels}_{ctx,sctx}_{parc}.csv
//	summary_statistics/{disorder}_{measure}.csv     ENIGMA summary statistics
//	permutation/{parc}_sphere_centroids.csv         parcel centroids (x,y,z)
//
// Hemisphere-split data stores the left hemisphere first; Hemispheres
// splits a joined vector at its midpoint. Parsed files are cached in an LRU
// keyed by path and modification time, and every loader returns a copy.
package datasets
