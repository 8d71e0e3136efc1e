package core

import "errors"

// Typed failures surfaced to callers. The HTTP layer maps each to a stable
// error kind and status code; nothing in this package logs or swallows them.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrReadOnlyCategory    = errors.New("computed category is read-only")
	ErrFormulaCycle        = errors.New("formula cycle")
	ErrUnknownCategory     = errors.New("unknown category reference")
	ErrInvalidFormula      = errors.New("invalid formula")
	ErrConstraintViolation = errors.New("uniqueness constraint violated")

	ErrPracticeNotFound   = errors.New("practice not found")
	ErrFiscalYearNotFound = errors.New("fiscal year not found")
	ErrPeriodNotFound     = errors.New("budget period not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrLineNotFound       = errors.New("budget line not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrCategoryInUse      = errors.New("category is referenced by other records")
	ErrDuplicateName      = errors.New("name already exists")
	ErrForbidden          = errors.New("operation not permitted for role")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrEmptyName              = errors.New("empty name")
	ErrNameTooLong            = errors.New("name too long (max 255 characters)")
	ErrInvalidStatus          = errors.New("invalid practice status")
	ErrInvalidCategoryType    = errors.New("invalid category type")
	ErrInvalidYear            = errors.New("invalid fiscal year")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrInvalidDateRange       = errors.New("end date before start date")
	ErrEmptyEmail             = errors.New("empty email")
	ErrInvalidRole            = errors.New("invalid role")
	ErrManagerWithoutPractice = errors.New("manager requires a practice affiliation")
)
