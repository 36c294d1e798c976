package errors

import "go.uber.org/multierr"

// Collect folds problems gathered with multierr.Append into one error carrying
// code, whose details list every message. It returns nil when errs is nil.
func Collect(code Code, errs error, message string) error {
	if errs == nil {
		return nil
	}
	list := multierr.Errors(errs)
	details := make([]string, 0, len(list))
	for _, e := range list {
		details = append(details, MessageOf(e))
	}
	return New(code, message).WithDetails(details)
}

// MessageOf returns the typed message when err is an *Error, else err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
