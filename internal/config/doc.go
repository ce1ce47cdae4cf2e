// Package config loads the replyparse CLI configuration from defaults, an
// optional replyparse.yaml and REPLYPARSE_* environment variables, and
// reloads it when the file changes.
package config
