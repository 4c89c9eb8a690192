// Package sending is the delivery engine shared by every send path: campaign
// dispatch, ad-hoc bulk sends, single sends and configuration test sends.
//
// A send takes already-filtered recipients, personalizes subject and body per
// contact, appends the unsubscribe footer, hands the message to a Transport,
// and records exactly one delivery log entry per attempt. Recipients are
// processed in fixed-size batches: sends within a batch run concurrently and
// batches run one after another with a fixed pause between them.
//
// The service depends only on the interfaces in interfaces.go. It never
// imports net/http or database/sql directly.
package sending
