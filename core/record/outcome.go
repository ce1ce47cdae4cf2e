package record

// Source tells how the value of an Outcome was obtained.
type Source int

const (
	SourceNone Source = iota
	// SourceDecoded means the cleaned text decoded as-is.
	SourceDecoded
	// SourceRepaired means the text decoded after JSON repair.
	SourceRepaired
	// SourcePartial means some fields were recovered and the rest defaulted.
	SourcePartial
	// SourceInferred means nothing decoded but fields were inferred from the raw text.
	SourceInferred
	// SourceDefault means the value is the plain default record.
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceDecoded:
		return "decoded"
	case SourceRepaired:
		return "repaired"
	case SourcePartial:
		return "partial"
	case SourceInferred:
		return "inferred"
	case SourceDefault:
		return "default"
	default:
		return "none"
	}
}

// Outcome is the success-or-failure result of a parse. A successful outcome
// carries a fully populated Value; a failed one carries Err and a zero Value.
type Outcome[T any] struct {
	Value  T
	Err    error
	Source Source
}

// Success wraps v as a successful outcome.
func Success[T any](v T, source Source) Outcome[T] {
	return Outcome[T]{Value: v, Source: source}
}

// Failure wraps err as a failed outcome.
func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Get returns the value and error, for callers that prefer Go's usual shape.
func (o Outcome[T]) Get() (T, error) {
	return o.Value, o.Err
}

// As converts an outcome holding a Record into one holding the concrete
// record type T. A value of a different type turns into a failure.
func As[T Record](o Outcome[Record]) Outcome[T] {
	if o.Err != nil {
		return Failure[T](o.Err)
	}
	v, ok := o.Value.(T)
	if !ok {
		var zero T
		return Failure[T](&KindMismatchError{Want: kindOf(zero), Got: kindOf(o.Value)})
	}
	return Success(v, o.Source)
}

// KindMismatchError reports a record of an unexpected kind.
type KindMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *KindMismatchError) Error() string {
	return "record kind mismatch: want " + e.Want.String() + ", got " + e.Got.String()
}

func kindOf(r Record) Kind {
	if r == nil {
		return 0
	}
	return r.Kind()
}
