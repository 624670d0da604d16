// Package captcha generates the visual challenge shown in front of the login
// form.
//
// A challenge is five characters from an alphabet without look-alike glyphs
// (no 0/O, 1/I). Each character is drawn on its own tile, then scaled,
// rotated, and coloured with random jitter before being composited onto the
// canvas together with a few noise strokes. The result is a PNG, usually
// delivered to browsers as a data URI.
//
// Storage and single-use semantics are the engine's concern; this package
// only produces text and pixels and compares answers.
package captcha
