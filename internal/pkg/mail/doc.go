// Package mail sends transactional email.
//
// Callers depend on the Mail interface and the Message payload. SMTP delivers
// through a relay, Log writes message metadata to slog for local runs, and
// Retrying wraps either one to ride out transient relay failures.
package mail
