// Package record defines the typed results the rest of the application
// consumes: [AnalysisResult], [SafetyCheckResult] and [ExtractedData].
//
// Each record has one fixed default (see [Default]). A field that is absent
// or null in an otherwise decodable object always takes that default, under
// every strategy. Only a hard decode failure, such as a non-object value, a
// wrong JSON type or an unknown risk level, makes [Decode] return an error.
//
// [Coerce] and [Build] support partial recovery: the former converts
// whichever keys of a loose map fit their field, the latter lays those fields
// over the default record.
package record
