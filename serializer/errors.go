package serializer

import (
	"errors"
	"fmt"
	"strings"

	"graph-serializer/contract"
	"graph-serializer/internal/common"
)

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	_ ErrorKind = iota

	KindContractBuild
	KindTypeResolution
	KindReferenceResolution
	KindConversion
	KindStructural
	KindDepthExceeded
	KindInfiniteLoop
	KindSelfReferencingLoop
)

var (
	ErrContractBuild       = errors.New("contract build error")
	ErrTypeResolution      = errors.New("type resolution error")
	ErrReferenceResolution = errors.New("reference resolution error")
	ErrConversion          = errors.New("conversion error")
	ErrStructural          = errors.New("structural error")
	ErrDepthExceeded       = errors.New("max depth exceeded")
	ErrInfiniteLoop        = errors.New("infinite loop detected from error handling")
	ErrSelfReferencingLoop = errors.New("self referencing loop detected")
)

var sentinels = map[ErrorKind]error{
	KindContractBuild:       ErrContractBuild,
	KindTypeResolution:      ErrTypeResolution,
	KindReferenceResolution: ErrReferenceResolution,
	KindConversion:          ErrConversion,
	KindStructural:          ErrStructural,
	KindDepthExceeded:       ErrDepthExceeded,
	KindInfiniteLoop:        ErrInfiniteLoop,
	KindSelfReferencingLoop: ErrSelfReferencingLoop,
}

func (k ErrorKind) String() string {
	if err, ok := sentinels[k]; ok {
		return err.Error()
	}

	return common.UnknownStr
}

// Fatal reports whether errors of this kind bypass the error handlers.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindConversion, KindStructural, KindDepthExceeded:
		return false
	default:
		return true
	}
}

// ErrorContext and Recovery are shared with the contract package, where
// ErrorCallback is declared.
type (
	ErrorContext = contract.ErrorContext
	Recovery     = contract.Recovery
)

const (
	Propagate = contract.Propagate
	Continue  = contract.Continue
)

// Error is a failure at one node of the graph.
type Error struct {
	Kind ErrorKind
	// Path locates the node, e.g. "events[1].code".
	Path string
	// Offset is the reader offset, or -1 on writes.
	Offset  int64
	Message string
	Err     error
	// Context is set once the error was offered to a handler.
	Context *ErrorContext
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	return fmt.Sprintf("%s. Path '%s'.", strings.TrimSuffix(msg, "."), e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}
