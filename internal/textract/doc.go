// Package textract runs text-extraction back-ends over the crops of a photo
// and folds their answers into an ordered property set.
//
// # Key Grammar
//
//	<facet>:<backend>:<ordinal|all>
//
// facet is "name" for top crops and "dest" for destination crops. backend is
// the back-end name ("ocr", "llm", ...). ordinal starts at 1 and advances only
// when a back-end returns non-empty text for a crop, so each (facet, backend)
// numbering is dense. The "all" key joins every non-empty answer of that
// (facet, backend) in ordinal order, separated by " ;\n".
//
// Given top crops 1 and 2 where the ocr back-end answers "A" then "", the
// result is name:ocr:1=A and name:ocr:all=A. There is no name:ocr:2.
//
// # Text Normalisation
//
// Answers are trimmed and converted to Unicode NFC before they are recorded.
// A failed call (error or timeout) is treated like an empty answer and logged.
package textract
