// Package match pairs canonical track titles with loosely named audio files.
//
// Everything here is pure: text normalization, significant-word extraction, the graduated match
// rules and the confidence score. The same functions back a one-shot pass over a whole bundle
// ([PairAll]) and single-track lookups inside the sync loop ([FindFile]).
package match
