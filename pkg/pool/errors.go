package pool

import (
	"fmt"

	"github.com/ajitpratap0/objectpool/pkg/errors"
)

func invalidArgument(argument, message string) error {
	return errors.New(errors.ErrorTypeValidation, message).
		WithDetail("argument", argument)
}

func (p *Pool[T]) limitReachedError() error {
	return errors.New(errors.ErrorTypeLimit, fmt.Sprintf("object pool %q hit object limit of %d", p.name, p.limit)).
		WithDetail("pool", p.source).
		WithDetail("name", p.name).
		WithDetail("limit", p.limit)
}

func (p *Pool[T]) closedError() error {
	return errors.New(errors.ErrorTypeClosed, fmt.Sprintf("object pool %q is disposed", p.name)).
		WithDetail("name", p.name)
}

// IsInvalidArgument reports whether err was caused by a nil or out-of-range argument.
func IsInvalidArgument(err error) bool {
	return errors.IsType(err, errors.ErrorTypeValidation)
}

// IsLimitReached reports whether err means the pool refused to construct
// another object because its limit was reached.
func IsLimitReached(err error) bool {
	return errors.IsType(err, errors.ErrorTypeLimit)
}

// IsClosed reports whether err came from using a disposed pool.
func IsClosed(err error) bool {
	return errors.IsType(err, errors.ErrorTypeClosed)
}

// LimitReachedPool returns the pool that raised a limit error.
func LimitReachedPool(err error) (any, bool) {
	e, ok := errors.As(err)
	if !ok || e.Type != errors.ErrorTypeLimit {
		return nil, false
	}
	return e.Detail("pool")
}
