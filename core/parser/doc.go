// Package parser is the entry point for turning model responses into records.
//
// A [Parser] runs one of three strategies over the same stages:
//
//	Direct     clean -> decode                          failure is returned
//	Resilient  clean -> decode (with repair)             failure -> fallback
//	Adaptive   clean -> map aliases -> decode -> partial field recovery -> fallback
//
// The stages live in their own packages (sanitize, alias, fallback) and can
// be used on their own. Under Adaptive, fuzzy-matched keys that contributed a
// field are committed back to the alias registry, so the next response using
// the same key matches exactly.
//
// Example usage:
//
//	p := parser.New(parser.WithObserver(slogobs.New()))
//	out := p.ParseAnalysis(ctx, raw, parser.Context{ModelName: "gpt-4o"})
//	reply := out.Value.ReplySuggestion
package parser
