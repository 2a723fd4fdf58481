// Package static provides an in-memory worker capability catalog. The
// orchestration core treats the catalog as an external collaborator; this
// adapter backs it with a plain map for the daemon and for tests.
package static
