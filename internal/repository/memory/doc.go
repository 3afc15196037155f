// Package memory provides in-process implementations of the repository
// contracts. The server uses them when no database is configured, and the
// service tests use them as fixtures.
package memory
