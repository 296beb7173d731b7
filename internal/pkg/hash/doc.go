// Package hash hashes and verifies passwords.
package hash
