// Package ocr is the "ocr" text-extraction back-end, built on Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Each call
// creates its own client, so a single Tesseract value is safe to share across
// the worker pool.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-fra
//   - macOS: brew install tesseract tesseract-lang
//
// # Languages
//
// Sign text is French by default ("fra"). Several languages are combined with
// "+" the way the tesseract CLI does, e.g. []string{"fra", "eng"}.
//
// # Preprocessing
//
// Crops are converted to grayscale and small crops are upscaled to
// MinHeight pixels before recognition. Tesseract does poorly on text under
// roughly 20 pixels tall and sign nameplates are often tiny in the photo.
//
// # Confidence Filtering
//
// With MinConfidence set, only words at or above that confidence (0 to 1)
// are kept, joined by spaces within a line. Otherwise the full page text is
// returned as Tesseract produced it.
package ocr
