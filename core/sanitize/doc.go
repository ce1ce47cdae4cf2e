// Package sanitize extracts the JSON payload from raw model output.
//
// Models wrap their answers in markdown fences, chatty prose, HTML from a
// proxying front-end, or literal \uXXXX escapes. [Sanitizer.Clean] peels
// those layers off and returns the text most likely to decode. It never
// returns an error: text with no bracketed region comes back trimmed but
// otherwise untouched, so the problem surfaces where the text is decoded.
package sanitize
