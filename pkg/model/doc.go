// Package model defines the option, formula and conditional-logic definitions a
// merchant attaches to a catalog item, together with the submission snapshot and
// the immutable EvaluationContext threaded through every evaluation pass.
//
// Definitions are authored once and read many times; nothing in this package
// mutates them. Submissions are owned by the caller and passed by value (their
// maps are shared read-only) for the duration of one pass.
package model
