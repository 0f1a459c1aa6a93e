// Package pipeline turns a shared link or a scanned code into an opened,
// permission-checked profile.
//
// An invocation runs these stages in order and stops at the first one that
// fails:
//
//	Debounce → SelfCheck → NetworkGuard → GraphReady → Validate →
//	Resolve → DeleteCheck → Authorize → Complete → Activate → Record
//
// Every failure ends in exactly one Notice for the user; nothing escapes
// Run. Complete is best effort. Record runs in the background after
// Activate and only surfaces rate limiting.
//
// Invocations less than the debounce window after the last accepted one
// are dropped without a notice. An accepted invocation cancels the one still
// in flight, and a cancelled invocation never activates the viewer.
package pipeline
