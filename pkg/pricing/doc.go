// Package pricing computes the price adjustments of an option group: formula
// amounts, priced choices and the per-line breakdown. A nil amount always
// means "add nothing", never zero.
package pricing
