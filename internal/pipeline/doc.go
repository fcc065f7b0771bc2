// Package pipeline drives the geojson stage over a folder of photos.
//
// For every photo the Orchestrator reads the EXIF position, fuses the
// text-extraction answers for the photo's crops, resolves the Panoramax
// picture and builds one GeoJSON feature. Photos without a position are
// skipped with a warning.
//
// Two modes exist. In parallel mode a bounded pool of workers processes
// photos concurrently and features arrive in completion order. In sequential
// mode photos are processed one at a time in name order, which keeps a
// single shared LLM server from being hit concurrently.
//
// Every completed feature goes through Store, which appends it and rewrites
// the whole FeatureCollection under one lock, so the output file is complete
// and valid after each photo.
package pipeline
