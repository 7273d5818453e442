package mailtm

import "fmt"

// Error represents a non-2xx Mail.tm API response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mailtm: %s (status %d)", e.Message, e.StatusCode)
}

// ProvisioningError is returned when an account could not be created.
type ProvisioningError struct {
	Address string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("create account %s: %v", e.Address, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// AuthError is returned when no access token could be obtained. Err is nil
// when the API answered successfully but without a token.
type AuthError struct {
	Address string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token for %s: no token returned", e.Address)
	}
	return fmt.Sprintf("token for %s: %v", e.Address, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
