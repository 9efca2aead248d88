// Package stitching turns MIST global-positions vectors into pixel sources.
//
// Discover finds one vector per time point by file name, ParseVector reads
// tile placements, and Composite renders arbitrary regions of the stitched
// canvas on demand from the referenced TIFF or PNG tiles.
package stitching
