// Package engine hosts the authoring session: the state machine that owns
// a rule set while it is being edited.
//
// The model is single-threaded and event-driven. Handlers run to
// completion before the next one starts, so the session holds no locks.
// What IS handled explicitly is async completion ordering: compilation
// calls and count previews capture a request token at dispatch, and a
// completion is applied only if its token is still the latest for that
// slot. Stale completions are discarded - that discard is the pipeline's
// only cancellation mechanism.
//
// INVARIANTS:
//   - Editing an AI rule's prompt resets it to Pending, clears compiled
//     output, and invalidates any in-flight compilation for the old prompt
//   - Only the most recently issued count request may update the preview
//   - A compile failure lands on its rule (status=Error); it never aborts
//     the session or the rest of the rule set
package engine
