// Package binding turns a formula's variable list into the flat name to number
// map the formula engine evaluates against. Custom variables are inlined by
// textual substitution before binding and hidden options bind to their neutral
// value.
package binding
