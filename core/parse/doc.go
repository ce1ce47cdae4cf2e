// Package parse is the type-directed decode facility of the pipeline. It turns
// a structural JSON string into a typed value or a generic key/value map.
//
// [Strict] performs a plain decode and is what the Direct strategy relies on.
// [Repaired] and [Object] add automatic JSON repair (missing quotes, trailing
// commas, unterminated objects) and schema-envelope unwrapping, which the
// Resilient and Adaptive strategies use before giving up on a response.
package parse
