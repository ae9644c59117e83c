package common

import "time"

// AuthorizationScheme is the scheme expected in the Authorization header.
const AuthorizationScheme = "Bearer"

// PinLength is the number of decimal digits in a verification PIN.
const PinLength = 6

// ResetTokenBytes is the amount of random bytes behind a password reset token.
const ResetTokenBytes = 32

// LoginTokenValidity is the lifetime of a pre-verification (login) token.
const LoginTokenValidity = 15 * time.Minute
