// Package workflow binds the transaction core to its persistence and
// collaborator resolvers.
//
// The service serializes lifecycle mutations at the call boundary: every
// transition is appended with the transition log's version token, so two
// racing attempts on the same transaction cannot both win.
package workflow
