package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names so the sanitizer, the alias
// registry, the fallback synthesizer and the parser report consistently.

// --- Parse Attributes ---

const (
	// AttrOperationID identifies one parse call
	AttrOperationID = "parse.operation.id"

	// AttrOperationType is the caller-supplied operation label (e.g. "analyze_conversation")
	AttrOperationType = "parse.operation.type"

	// AttrModelName is the model that produced the text, when the caller knows it
	AttrModelName = "parse.model"

	// AttrStrategy is the parse strategy (direct, resilient, adaptive)
	AttrStrategy = "parse.strategy"

	// AttrRecordKind is the target record kind
	AttrRecordKind = "parse.record.kind"

	// AttrSource tells how the returned value was obtained (decoded, repaired, partial, inferred, default)
	AttrSource = "parse.source"

	// AttrRawLength is the length of the raw model text in characters
	AttrRawLength = "parse.raw.length"

	// AttrCleanedLength is the length of the sanitized text in characters
	AttrCleanedLength = "parse.cleaned.length"

	// AttrRawText is the (truncated) raw model text
	AttrRawText = "parse.raw.text"

	// AttrRecoveredFields lists the fields recovered during partial parsing
	AttrRecoveredFields = "parse.recovered_fields"
)

// --- Sanitizer Attributes ---

const (
	// AttrSanitizeSteps lists the cleaning steps that changed the text
	AttrSanitizeSteps = "sanitize.steps"

	// AttrSanitizeMiss is true when no JSON boundary was found
	AttrSanitizeMiss = "sanitize.miss"
)

// --- Alias Attributes ---

const (
	// AttrAliasKey is the key as it appeared in the model output
	AttrAliasKey = "alias.key"

	// AttrAliasCanonical is the canonical field the key resolved to
	AttrAliasCanonical = "alias.canonical"

	// AttrAliasScore is the fuzzy similarity score of a match
	AttrAliasScore = "alias.score"

	// AttrAliasExactCount is the number of exact matches in one mapping pass
	AttrAliasExactCount = "alias.exact_count"

	// AttrAliasFuzzyCount is the number of fuzzy matches in one mapping pass
	AttrAliasFuzzyCount = "alias.fuzzy_count"

	// AttrAliasLearned is the number of aliases committed after a parse
	AttrAliasLearned = "alias.learned"
)

// --- Fallback Attributes ---

const (
	// AttrFallbackReason is the message of the failure that triggered the fallback
	AttrFallbackReason = "fallback.reason"

	// AttrFallbackInferred lists the fields recovered by text inference
	AttrFallbackInferred = "fallback.inferred_fields"
)

// --- Alias Store Attributes ---

const (
	// AttrStoreBackend is the persistence backend (file, sqlite)
	AttrStoreBackend = "store.backend"

	// AttrStorePath is the file or database path
	AttrStorePath = "store.path"

	// AttrStoreEntries is the number of table entries loaded or saved
	AttrStoreEntries = "store.entries"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrErrorType is the error type/class
	AttrErrorType = "error.type"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanParse wraps one orchestrated parse
	SpanParse = "parser.parse"

	// SpanSanitize wraps one cleaning pass
	SpanSanitize = "sanitize.clean"

	// SpanFallback wraps a fallback synthesis
	SpanFallback = "fallback.synthesize"
)

// --- Event Names ---

const (
	// EventCleaned marks the end of sanitization
	EventCleaned = "parse.cleaned"

	// EventFieldsMapped marks the end of alias mapping
	EventFieldsMapped = "parse.fields_mapped"

	// EventDecodeFailed marks a failed structural decode
	EventDecodeFailed = "parse.decode_failed"

	// EventAliasLearned marks a committed alias
	EventAliasLearned = "alias.learned"
)

// --- Metric Names ---

const (
	// MetricParseCount counts parse calls by status, strategy and kind
	MetricParseCount = "replyparse.parse.count"

	// MetricParseDuration is the histogram of parse duration in milliseconds
	MetricParseDuration = "replyparse.parse.duration"

	// MetricFallbackCount counts parses answered by the fallback synthesizer
	MetricFallbackCount = "replyparse.parse.fallback.count"

	// MetricAliasLearnedCount counts aliases learned from fuzzy matches
	MetricAliasLearnedCount = "replyparse.alias.learned.count"

	// MetricAliasMatchCount counts alias matches by kind (exact, fuzzy)
	MetricAliasMatchCount = "replyparse.alias.match.count"
)
