// Package crop turns detector regions into sign crop files and records them
// in an explicit index.
//
// Crops are written to
//
//	<crop_dir>/<kind>/<base>_<kind>_<ordinal>.jpg
//
// where kind is "top" or "destination", base is the photo filename without
// extension and ordinal starts at 1 for each (photo, kind). An ordinal is only
// consumed when a file is written, so the numbering is always contiguous.
//
// Every written crop is also listed in <crop_dir>/index.json. Readers use
// OpenLocator, which prefers the index and falls back to probing ordinals on
// disk for crop directories produced without one.
package crop
