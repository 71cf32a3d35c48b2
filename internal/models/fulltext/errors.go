package fulltextmodels

import (
	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
)

var (
	ErrDocumentApplication = errorsx.New("failed to apply document")
	ErrIndexCorruption     = errorsx.New("index is corrupted")
	ErrPopulation          = errorsx.New("failed to populate index")
	ErrShutdown            = errorsx.New("failed to shut down cleanly")

	ErrUnsupportedValue = errorsx.New("unsupported property value")
	ErrInvalidIdentity  = errorsx.New("invalid index identity")
	ErrIndexNotFound    = errorsx.New("fulltext index not found")
	ErrIndexDead        = errorsx.New("fulltext index is dead")
	ErrApplierStopped   = errorsx.New("update applier is stopped")
	ErrReaderClosed     = errorsx.New("index reader is closed")
	ErrEntityNotFound   = errorsx.New("entity not found")
)

type ErrorKind uint8

const (
	UnknownErrorKind ErrorKind = iota
	DocumentErrorKind
	CorruptionErrorKind
	PopulationErrorKind
	ShutdownErrorKind
)

func (k ErrorKind) String() string {
	switch k {
	case DocumentErrorKind:
		return "document"
	case CorruptionErrorKind:
		return "corruption"
	case PopulationErrorKind:
		return "population"
	case ShutdownErrorKind:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Classify maps an error onto one of the failure kinds.
// Unrecognised errors count as corruption.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return UnknownErrorKind
	case errorsx.Is(err, ErrDocumentApplication), errorsx.Is(err, ErrUnsupportedValue):
		return DocumentErrorKind
	case errorsx.Is(err, ErrPopulation):
		return PopulationErrorKind
	case errorsx.Is(err, ErrShutdown):
		return ShutdownErrorKind
	default:
		return CorruptionErrorKind
	}
}
