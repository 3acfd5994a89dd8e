// Package prompt collects a submission for an option group on the terminal.
// The Driver interface hides survey so sessions run against a scripted driver
// in tests.
package prompt
