package federation

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrComposition matches every *CompositionError via errors.Is.
var ErrComposition = errors.New("schema composition failed")

// ErrorKind classifies why a composition attempt failed.
type ErrorKind int

const (
	// KindConfiguration marks malformed or incomplete subgraph definitions.
	KindConfiguration ErrorKind = iota + 1
	// KindRetrieval marks a schema that could not be read or downloaded.
	KindRetrieval
	// KindPublication marks a failure writing the supergraph artifact or the manifest.
	KindPublication
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindRetrieval:
		return "retrieval"
	case KindPublication:
		return "publication"
	default:
		return "unknown"
	}
}

// CompositionError is returned by every operation of this package that fails.
// Subgraph is empty when the failure is not tied to a single subgraph.
type CompositionError struct {
	Kind     ErrorKind
	Subgraph string
	Message  string
	Err      error
}

func (e *CompositionError) Error() string {
	msg := e.Message
	if e.Subgraph != "" {
		msg = fmt.Sprintf("subgraph '%s': %s", e.Subgraph, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

func (e *CompositionError) Is(target error) bool {
	return target == ErrComposition
}

func configurationError(format string, args ...interface{}) *CompositionError {
	return &CompositionError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func retrievalError(subgraph string, err error, format string, args ...interface{}) *CompositionError {
	return &CompositionError{Kind: KindRetrieval, Subgraph: subgraph, Message: fmt.Sprintf(format, args...), Err: err}
}

func publicationError(err error, format string, args ...interface{}) *CompositionError {
	return &CompositionError{Kind: KindPublication, Message: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

// IsKind reports whether err is a CompositionError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var compositionErr *CompositionError
	if !errors.As(err, &compositionErr) {
		return false
	}
	return compositionErr.Kind == kind
}
