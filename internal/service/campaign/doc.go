// Package campaign implements campaign dispatch.
//
// Dispatch turns a draft or scheduled campaign into individually delivered,
// personalized and logged sends, then marks the campaign sent exactly once.
// The status change is guarded by a compare-and-set in the repository, so two
// concurrent dispatches of one campaign can never both reach the transport.
//
// Repository implementations live in repository/postgres/.
package campaign
