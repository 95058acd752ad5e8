// Package memory provides process-local implementations of the driven store
// ports. They back the --store memory mode and the service tests; nothing
// survives process exit.
package memory
