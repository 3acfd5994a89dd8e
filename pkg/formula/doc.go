// Package formula parses and evaluates merchant price formulas.
//
// The dialect supports numbers, string literals, the four arithmetic
// operators, comparisons that yield 1 or 0, bracketed variable references such
// as [width] and calls into a fixed function library. Parsed formulas are
// lowered to expr-lang programs and cached per expression text.
//
// Failures never panic into callers. Every problem is reported as an
// *EvaluationError, which callers treat as "no value" rather than zero.
package formula
