// Package binder decodes HTTP request bodies into typed request structs for
// handler.Wrap. Binding errors wrap the package sentinels so the error
// handler can answer 400 or 415 without inspecting messages.
package binder
