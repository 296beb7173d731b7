// Package uid generates identifiers: UUIDv7 strings for correlation IDs and
// snowflake integers for primary keys.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates 64-bit identifiers.
type NumberID interface {
	Generate() int64
}
