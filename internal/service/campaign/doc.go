// Package campaign implements campaign drafts and their lifecycle.
//
// A campaign is created as a draft and moves exactly once, to sent or
// failed, when the dispatch service reconciles a send. The service layer
// depends on the repository interface defined in this package and never
// imports from handler code.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package campaign
