package errors_test

import (
	"fmt"
	"testing"

	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	err := errors.Wrapf(errors.ErrTenantInactive, "login %s", "jane@acme.com")
	require.True(t, errors.Is(err, errors.ErrTenantInactive))
	require.Equal(t, errors.KindTenantInactive, errors.KindOf(err))
	require.Equal(t, "organization is not active", errors.Public(err))
}

func TestKindOfUnclassified(t *testing.T) {
	err := fmt.Errorf("connection reset")
	require.Equal(t, errors.KindInternal, errors.KindOf(err))
	require.Equal(t, "internal error", errors.Public(err))
}

func TestPublicDropsWrappingContext(t *testing.T) {
	err := errors.Wrapf(errors.Invariant("account is already approved"), "registration.Approve %s", "01HZX")
	require.True(t, errors.Is(err, errors.ErrInvariantViolation))
	require.Equal(t, errors.KindInvariantViolation, errors.KindOf(err))
	require.Equal(t, "account is already approved", errors.Public(err))
	require.Contains(t, err.Error(), "01HZX", "logs keep the context")

	invalid := errors.Wrapf(errors.Invalid("unknown role %q", "owner"), "members %s", "a1")
	require.True(t, errors.Is(invalid, errors.ErrInvalidRequest))
	require.Equal(t, `unknown role "owner"`, errors.Public(invalid))
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "nothing"))
}
