// Package fallback synthesizes records when a model response cannot be
// decoded, or can only be decoded in part.
//
// Every record kind has one fixed default (see record.Default). A
// [Synthesizer] starts from that default, applies whatever fields were
// recovered, and, when asked to, fills the remaining free-text fields from
// the raw response with [Infer]. The result is always a success for a known
// kind: a neutral record is preferable to surfacing a malformed reply.
package fallback
