package common

const (
	// AuthorizationHeaderName carries the bearer session token.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// ResetCodeMin and ResetCodeMax bound the numeric password reset code.
	ResetCodeMin = 100000
	ResetCodeMax = 999999
)
