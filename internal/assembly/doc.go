// Package assembly drives a run: it discovers the time points of an
// acquisition, assembles each one into a tiled OME-TIFF through the
// stitching, metadata and ometiff packages, and records a per-time-point
// outcome. Failures stay local to their time point; Run reports
// ErrNoTimeSlicesAssembled only when no output was committed at all.
package assembly
