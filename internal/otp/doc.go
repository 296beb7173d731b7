// Package otp issues, throttles and verifies one-time passcodes.
//
// The Engine keeps all of its state in a ttlstore.Store under four keys per
// normalized email:
//
//	otp:<email>           active code, expires after Policy.CodeTTL
//	otp:cooloff:<email>   set on every issued code, expires after Policy.Cooloff
//	otp:requests:<email>  admitted requests in the current window
//	otp:locked:<email>    set when the window is exhausted, expires after Policy.LockFor
//
// A RequestCode call is checked in this order: lock, exhausted window (which
// engages the lock), cooloff. Only admitted calls count against the window and
// increments never extend it. A successful VerifyCode removes all four keys.
//
// Store failures are reported as KindStoreUnavailable and never decide an
// outcome on their own.
package otp
