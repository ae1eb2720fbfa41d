package apierror

// Outcome is what user-facing operations return instead of an error.
type Outcome[T any] struct {
	Success bool
	Value   T
	Err     *Error
}

func Succeed[T any](v T) Outcome[T] {
	return Outcome[T]{Success: true, Value: v}
}

// Fail normalizes err into a failed Outcome.
func Fail[T any](err error) Outcome[T] {
	e := Normalize(err)
	if e == nil {
		e = single(KindUnexpected, UnexpectedMessage, nil)
	}
	return Outcome[T]{Err: e}
}
