// Package value resolves the current value of an option from a submission
// snapshot and normalises it into a scalar or an aggregate, one Kind per option
// type. Resolution never fails: missing or malformed input yields the kind's
// neutral value.
package value
