// Package utils holds small helpers shared by the parser and the CLI: an
// elapsed-time [Timer] for duration metrics and [JSONToString] for printing
// records.
package utils
