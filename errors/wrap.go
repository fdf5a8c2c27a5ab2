package errors

import stderrors "errors"

// Is and As forward to the standard library so callers importing this
// package under its own name still get them.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }
