package otp

import (
	"context"
	"time"
)

// Purpose tells the Notifier which message to send.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposePasswordReset Purpose = "password_reset"
)

// Notification is handed to the Notifier for every issued code.
type Notification struct {
	// Destination is the delivery address, the normalized email.
	Destination string
	Code        string
	Email       string
	Purpose     Purpose
	// Name is the addressee's display name, possibly empty.
	Name string
	// TTL is how long Code stays valid.
	TTL time.Duration
	// Data is extra template context supplied by the caller.
	Data map[string]any
}

// Notifier delivers an issued code.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// CodeGenerator produces fresh codes.
type CodeGenerator interface {
	Generate() (string, error)
}
