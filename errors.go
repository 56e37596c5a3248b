package relcache

import (
	"errors"
	"fmt"
)

var (
	ErrNilProvider = errors.New("relcache: provider is required")
	ErrNamespace   = errors.New("relcache: namespace is required")
)

// DecodeError reports a stored value that could not be decoded.
// Namespace is "entity" or "rel".
type DecodeError struct {
	Namespace string
	Key       string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("relcache: decode %s %q: %v", e.Namespace, e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CloseError collects failures from closing the provider and the locker.
type CloseError struct {
	ProviderErr error
	LockerErr   error
}

func (e *CloseError) Error() string {
	switch {
	case e.ProviderErr != nil && e.LockerErr != nil:
		return fmt.Sprintf("relcache: close failed: provider=%v; locker=%v", e.ProviderErr, e.LockerErr)
	case e.ProviderErr != nil:
		return fmt.Sprintf("relcache: close provider: %v", e.ProviderErr)
	case e.LockerErr != nil:
		return fmt.Sprintf("relcache: close locker: %v", e.LockerErr)
	default:
		return "relcache: close: unknown error"
	}
}

func (e *CloseError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.ProviderErr != nil {
		errs = append(errs, e.ProviderErr)
	}
	if e.LockerErr != nil {
		errs = append(errs, e.LockerErr)
	}
	return errs
}
