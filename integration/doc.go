//go:build integration

// Package integration holds end-to-end tests that push and pull archives
// through a real OCI registry.
//
// These tests require Docker and start a registry:2 container with
// testcontainers. Run with: go test -tags=integration ./integration/...
package integration
