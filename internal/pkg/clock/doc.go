// Package clock provides a tiny time abstraction.
//
// Code that stamps emails, rows or log attributes with "now" should depend on
// Clocker so tests can freeze time with NewFixed.
package clock
