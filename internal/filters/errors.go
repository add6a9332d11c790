package filters

import (
	"errors"
	"fmt"

	"UsersAPI/internal/apperror"
)

const (
	CodeInvalidSortBy            = 10001001
	CodeIncludeInactiveForbidden = 10001002
	CodeInvalidLimit             = 10001003
	CodeLimitExceeded            = 10001004
)

var (
	ErrInvalidSortKey           = errors.New("sortBy - invalid param")
	ErrIncludeInactiveForbidden = errors.New("User has no permissions to set includeInactive")
	ErrLimitInvalid             = errors.New("limit - invalid param")
	ErrLimitExceeded            = errors.New("limit is exceeded")
)

func invalidSortKey() error {
	return apperror.BadRequest(CodeInvalidSortBy, ErrInvalidSortKey.Error(), ErrInvalidSortKey)
}

func limitInvalid() error {
	return apperror.BadRequest(CodeInvalidLimit, ErrLimitInvalid.Error(), ErrLimitInvalid)
}

func limitExceeded(max int) error {
	return apperror.BadRequest(CodeLimitExceeded, fmt.Sprintf("limit can't be more than %d", max), ErrLimitExceeded)
}

// IncludeInactiveForbidden is returned by callers that restrict the
// includeInactive filter to privileged users.
func IncludeInactiveForbidden() error {
	return apperror.Forbidden(CodeIncludeInactiveForbidden, ErrIncludeInactiveForbidden.Error(), ErrIncludeInactiveForbidden)
}
