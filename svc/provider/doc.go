// Package provider exposes the two provider columns the billing core may write:
// the validated flag and the automatic ranking score.
//
// The rest of the provider entity (profile, manual score override, listing
// content) is managed elsewhere. Two Repository implementations are provided:
// PostgresRepository over pgx and MemoryRepository for development and tests.
package provider
