// Package pixel defines the sample types, byte layouts and the read-only
// Source abstraction the assembly pipeline pulls tile bytes from.
//
// A Source reports its geometry and a Format; ReadRegion hands back bytes in
// exactly that format. Layout helpers convert between byte orders and between
// planar and chunky storage so callers can hand a single convention to the
// container writer.
package pixel
