package domain

import "errors"

// Every precondition failure surfaces as one of these sentinels so callers
// can tell a permanently invalid input (ErrInvalidPrice) from a transient
// condition (ErrMarketNotExpired). An operation that fails with any of them
// has applied no state change and emitted no event.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMarketNotExpired    = errors.New("market has not expired")
	ErrMarketNotActive     = errors.New("market is not active")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrInvalidPrice        = errors.New("price outside basis-point range")
	ErrValidation          = errors.New("invalid parameters")
	ErrArithmeticFault     = errors.New("arithmetic fault")
	ErrInsufficientBalance = errors.New("insufficient balance") // reserved for the token collaborator
)
