//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are run via `go run` or installed with `go install` and are not
// tracked in go.mod since they are not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates the port mocks under internal/mocks
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock v0.6.0 (matches go.mod)
//   Docs: https://github.com/uber-go/mock
//
// Air - live reload for cmd/accounts during local development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run: STORE_BACKEND=memory NODE_ENV=development air -- ./cmd/accounts
//   Docs: https://github.com/air-verse/air
