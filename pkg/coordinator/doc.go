// Package coordinator reconciles the presentation context, which previews
// prices while the shopper edits options, with the authoritative context that
// computes the charged price.
//
// When the store enters prices with one tax mode and displays them with the
// other, formulas that read a price-valued input cannot be trusted in the
// presentation context. PreviewOrDefer sends those to an Authority and returns
// a Pending future; every other formula is evaluated immediately. Each call
// issues a new token and round-trips answering an older token are discarded.
package coordinator
