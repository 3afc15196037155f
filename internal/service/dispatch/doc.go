// Package dispatch sends campaigns.
//
// A dispatch resolves the current recipient set, renders one message per
// recipient, sends them in order over a single transport session, and then
// reconciles the per-recipient outcome into persistent state: the campaign
// becomes sent (with the number of recipients actually reached) or failed,
// and every reached signup becomes contacted. Nothing is retried.
//
// Rules:
//   - An empty recipient set leaves the campaign a draft.
//   - A session that cannot be opened fails the campaign and touches no signup.
//   - Reconciliation writes are best-effort; a failed signup update is
//     logged and reported in the outcome warnings.
package dispatch
