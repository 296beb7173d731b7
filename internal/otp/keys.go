package otp

import "strings"

const keyPrefix = "otp:"

// NormalizeEmail lowercases and trims email. It does not validate the format.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type keys struct {
	code, cooloff, counter, lock string
}

func keysFor(email string) keys {
	return keys{
		code:    keyPrefix + email,
		cooloff: keyPrefix + "cooloff:" + email,
		counter: keyPrefix + "requests:" + email,
		lock:    keyPrefix + "locked:" + email,
	}
}

func (k keys) all() []string {
	return []string{k.code, k.cooloff, k.lock, k.counter}
}
