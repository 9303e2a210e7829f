// Package textnorm turns raw page text into the canonical form that every
// later stage (shingling, hashing, diversity scoring) works on.
//
// Normalize is pure and deterministic: the same input always yields the same
// output. It performs Unicode NFKC normalization, language-neutral lower
// casing, punctuation removal and whitespace collapsing. Sentence terminators
// survive normalization so that sentence-level statistics can still be
// computed from the normalized text.
//
// ExtractHTML is a small collaborator for callers that hold an HTML document
// rather than extracted text. It keeps the primary content region of the page
// and drops navigation, scripts and similar chrome.
package textnorm
