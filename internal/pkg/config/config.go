package config

import (
	"io"
	"time"
)

// TimeConfig defines helpers for retrieving duration configuration values.
//
// Values are stored as plain integers and scaled by the unit in the method
// name, so `store_timeout_seconds: 3` is read with GetSecond.
type TimeConfig interface {
	// GetSecond retrieves the value associated with key as seconds.
	GetSecond(key string) time.Duration
	// GetMinute retrieves the value associated with key as minutes.
	GetMinute(key string) time.Duration
	// GetHour retrieves the value associated with key as hours.
	GetHour(key string) time.Duration
}

// NumberConfig defines helpers for retrieving numeric configuration values.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64
}

// Config defines a set of methods for retrieving configuration values of various types.
//
// Missing keys resolve to the zero value of the requested type unless the
// implementation registered a default for them.
type Config interface {
	io.Closer
	TimeConfig
	NumberConfig

	// GetBool retrieves the value associated with key as a bool.
	GetBool(key string) bool

	// GetString retrieves the value associated with key as a string.
	GetString(key string) string

	// GetArray retrieves the value associated with key as a slice of strings.
	// The value is stored with format <element1>,<element2>,...
	// Blank elements are dropped.
	GetArray(key string) []string
}
