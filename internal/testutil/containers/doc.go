// Package containers provides testcontainers-backed helpers for the
// integration test suite. Everything here is behind the "integration"
// build tag; unit tests never pull Docker.
package containers
