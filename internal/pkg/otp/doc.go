// Package otp generates numeric one-time passcodes.
package otp
