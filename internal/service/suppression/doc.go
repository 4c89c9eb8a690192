// Package suppression implements the unsubscribe list.
//
// This is the single source of truth for whether a contact should receive
// mail. Entries are keyed by contact; entries written before contact-level
// unsubscribes existed are keyed by the owning account and address instead,
// and both forms are honored on every send.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package suppression
