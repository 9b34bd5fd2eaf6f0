package graphql

import (
	apperrors "github.com/utafrali/bookcatalog/pkg/errors"
)

// resolverError is what resolvers hand to the executor: the public
// message only, plus the code in extensions. The full cause stays
// reachable through Unwrap for the handler's logging.
type resolverError struct {
	public *apperrors.AppError
	cause  error
}

func (e *resolverError) Error() string { return e.public.Message }

func (e *resolverError) Unwrap() error { return e.cause }

func (e *resolverError) Extensions() map[string]any { return e.public.Extensions() }

// internal reports whether the error hides a server-side failure.
func (e *resolverError) internal() bool { return e.public.Status >= 500 }

func fail(err error) error {
	if err == nil {
		return nil
	}
	return &resolverError{public: apperrors.Public(err), cause: err}
}
