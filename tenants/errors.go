package tenants

import "github.com/jrsteele09/go-hr-tenancy/internal/errors"

var (
	ErrEmptyName     = errors.Invalid("tenant name is required")
	ErrInvalidPlan   = errors.Invalid("unknown subscription plan")
	ErrInvalidStatus = errors.Invalid("unknown tenant status")
)
