package llm

import "fmt"

// Kind classifies why a generation pipeline failed.
type Kind string

const (
	// KindConfigInvalid means the API credential is missing or empty.
	KindConfigInvalid Kind = "config_invalid"
	// KindTransportFailure means the provider answered with a non-2xx status.
	KindTransportFailure Kind = "transport_failure"
	// KindEmptyResponse means the provider envelope carried no usable content.
	KindEmptyResponse Kind = "empty_response"
	// KindParseFailure means the generated text was not valid JSON.
	KindParseFailure Kind = "parse_failure"
	// KindSchemaMismatch means the JSON did not match the expected structure.
	KindSchemaMismatch Kind = "schema_mismatch"
	// KindMarksMismatch means question marks do not add up to the declared total.
	KindMarksMismatch Kind = "marks_mismatch"
	// KindUnexpectedFailure covers everything else (network unreachable, cancellation, bugs).
	KindUnexpectedFailure Kind = "unexpected_failure"
)

// IsValidation reports whether the kind comes from validating generated output.
func (k Kind) IsValidation() bool {
	return k == KindParseFailure || k == KindSchemaMismatch || k == KindMarksMismatch
}

// Failure is the typed result of a failed pipeline step. Message is safe to show
// to end users; RawResponse is diagnostic material for a collapsed debug view.
type Failure struct {
	Kind        Kind
	Message     string
	RawResponse string
	StatusCode  int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure without diagnostics.
func NewFailure(kind Kind, msg string) *Failure {
	return &Failure{Kind: kind, Message: msg}
}
