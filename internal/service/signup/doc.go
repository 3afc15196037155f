// Package signup implements the waitlist: joining, admin review and
// editing, dashboard statistics, and CSV export.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package signup
