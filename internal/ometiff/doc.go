// Package ometiff writes and reads single-image tiled OME-TIFF containers.
//
// Writer is a streaming sink: it reserves the file header, appends each
// encoded tile in grid order, and only at Close emits the image directory
// (dimensions, sample layout, tile offsets and an OME-XML ImageDescription)
// and patches the header to point at it. Memory use stays bounded by one tile
// plus the offset tables, independent of canvas size. Output is staged in a
// hidden partial file beside the target and committed by rename, so a failed
// or aborted write never leaves a file at the target path.
//
// Reader parses the first directory of classic or BigTIFF files and returns
// tile payloads cropped to their effective size. It doubles as the pixel-type
// probe for representative source tiles.
package ometiff
