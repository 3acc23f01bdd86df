package models

import "errors"

// Sentinel errors forming the application's error taxonomy. The service
// layer returns these (possibly wrapped); the API layer maps each one to a
// deterministic HTTP status. Anything else is reported as a generic
// internal error without leaking details.
var (
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrFundNotFound       = errors.New("fund not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncorrectPassword  = errors.New("incorrect current password")
	ErrInsufficientFunds  = errors.New("insufficient fund balance")
	ErrAlreadyProcessed   = errors.New("expense already processed")
	ErrNotPending         = errors.New("only pending expenses can be modified")
	ErrSelfDelete         = errors.New("cannot delete yourself")
	ErrHasDependents      = errors.New("record has dependent entries")
)
