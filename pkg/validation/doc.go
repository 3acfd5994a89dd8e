// Package validation checks option groups at authoring time.
//
// ValidateGroup never evaluates anything. It reports problems a merchant can
// fix in the definition: formulas that do not parse or reference unbound
// names, variables bound to the wrong kind of option, conditions on unknown
// options, and dependency cycles. Error issues disable the affected formula;
// warnings are informational.
package validation
