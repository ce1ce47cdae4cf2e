// Package alias rewrites the field names a model invents ("回复建议",
// "Reply", "suggested_reply") to the canonical names the records expect.
//
// A [Registry] holds an ordered alias [Table]. Keys are compared after
// [Normalize]; with fuzzy matching enabled, keys without an exact alias are
// scored with [Similarity] and accepted at or above the threshold.
//
// Mapping only reads the registry. Learning is an explicit second step: the
// caller inspects the [Report] and commits what it wants with
// [Registry.AddMapping].
package alias
