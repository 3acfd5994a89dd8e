// Package visibility decides whether each option is shown from its conditional
// logic and the current submission.
package visibility
