// Package mocks provides mock implementations of the account ports for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	users := mocks.NewMockUserStore(ctrl)
//	users.EXPECT().FindByEmail(gomock.Any(), "a@example.com").Return(nil, nil)
package mocks

// Generate mock for UserStore interface from internal/ports package.
// This creates MockUserStore with methods for all UserStore interface methods:
// Get, Put, FindByEmail
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_store_mock.go github.com/target/mmk-accounts/internal/ports UserStore

// Generate mock for Mailer interface from internal/ports package.
// This creates MockMailer with methods for all Mailer interface methods:
// Send
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=mailer_mock.go github.com/target/mmk-accounts/internal/ports Mailer

// Generate mock for EmailRenderer interface from internal/ports package.
// This creates MockEmailRenderer with methods for all EmailRenderer interface methods:
// Render
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=email_renderer_mock.go github.com/target/mmk-accounts/internal/ports EmailRenderer
