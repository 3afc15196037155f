// Package domain holds the waitlist console's value types: signups,
// campaigns, and the per-recipient results of a campaign send.
//
// Nothing here touches a database, a request, or a transport. Status
// enums carry their own validity checks, and DispatchOutcome derives the
// aggregate status and operator message from its results.
//
// The package imports no other internal/ package.
package domain
