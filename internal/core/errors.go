package core

// errors.go defines the error taxonomy of export and import runs.
//
// Every failure that ends a run is classified into a Kind with a stable
// support code:
//
//	EXP001 nothingToExport         the requested scope holds no rows
//	ARC001 invalidZipFile          the input is not a readable archive, or holds no usable CSV
//	ARC002 failedCreateZip         the output archive could not be written
//	FILE001 fileTooLarge           an archive entry exceeds the size limit
//	FILE002 invalidFileType        an archive entry has a disallowed extension
//	FILE003 unsafePath             an entry or photo name escapes the extraction root
//	FILE004 photoNotFound          a referenced photo is not in the archive
//	STO001 containerNotConfigured  the store cannot be archived as a raw file
//	OPS001 operationInProgress     another export or import is running
//	IO001 io                       any other filesystem or store failure
//
// File-level kinds are usually recovered by skipping the file; they only end
// a run under the strict file policy.

import (
	"errors"
	"strings"

	"github.com/movingbox/inventory-archive/internal/archive"
	"github.com/movingbox/inventory-archive/internal/codec"
	"github.com/movingbox/inventory-archive/internal/guard"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/photos"
)

// Kind classifies an export or import failure.
type Kind string

const (
	KindNothingToExport        Kind = "nothingToExport"
	KindInvalidZipFile         Kind = "invalidZipFile"
	KindFailedCreateZip        Kind = "failedCreateZip"
	KindFileTooLarge           Kind = "fileTooLarge"
	KindInvalidFileType        Kind = "invalidFileType"
	KindUnsafePath             Kind = "unsafePath"
	KindPhotoNotFound          Kind = "photoNotFound"
	KindContainerNotConfigured Kind = "containerNotConfigured"
	KindOperationInProgress    Kind = "operationInProgress"
	KindIO                     Kind = "io"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var userMessages = map[Kind]UserMessage{
	KindNothingToExport: {
		Message: "There is nothing to export",
		Action:  "Add items or widen the export selection",
		Code:    "EXP001",
	},
	KindInvalidZipFile: {
		Message: "The file is not a valid inventory archive",
		Action:  "Choose a .zip file created by an export",
		Code:    "ARC001",
	},
	KindFailedCreateZip: {
		Message: "The archive could not be created",
		Action:  "Check free disk space and the output folder permissions",
		Code:    "ARC002",
	},
	KindFileTooLarge: {
		Message: "A file in the archive is too large",
		Action:  "Raise the import file size limit or remove the file",
		Code:    "FILE001",
	},
	KindInvalidFileType: {
		Message: "A file in the archive has a type that is not allowed",
		Action:  "Remove the file from the archive",
		Code:    "FILE002",
	},
	KindUnsafePath: {
		Message: "A file in the archive has an unsafe name",
		Action:  "Only import archives from sources you trust",
		Code:    "FILE003",
	},
	KindPhotoNotFound: {
		Message: "A referenced photo is missing from the archive",
		Action:  "Re-export with photos included",
		Code:    "FILE004",
	},
	KindContainerNotConfigured: {
		Message: "This store cannot be backed up as a database file",
		Action:  "Use export instead, or switch to the SQLite store",
		Code:    "STO001",
	},
	KindOperationInProgress: {
		Message: "Another export or import is already running",
		Action:  "Wait for it to finish and try again",
		Code:    "OPS001",
	},
	KindIO: {
		Message: "An unexpected error occurred",
		Action:  "Please try again or check the logs",
		Code:    "IO001",
	},
}

// UserMessage returns the user-facing message for k.
func (k Kind) UserMessage() UserMessage {
	if m, ok := userMessages[k]; ok {
		return m
	}
	return userMessages[KindIO]
}

// Code returns the support code of k.
func (k Kind) Code() string { return k.UserMessage().Code }

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string // "export", "import" or "backup"
	Path string // file involved, if any
	Err  error

	text string // set on errors rebuilt from an Envelope
}

// Sentinels for errors.Is. Two *Error values match when their kinds match.
var (
	ErrNothingToExport        = &Error{Kind: KindNothingToExport}
	ErrInvalidZipFile         = &Error{Kind: KindInvalidZipFile}
	ErrFailedCreateZip        = &Error{Kind: KindFailedCreateZip}
	ErrFileTooLarge           = &Error{Kind: KindFileTooLarge}
	ErrInvalidFileType        = &Error{Kind: KindInvalidFileType}
	ErrUnsafePath             = &Error{Kind: KindUnsafePath}
	ErrPhotoNotFound          = &Error{Kind: KindPhotoNotFound}
	ErrContainerNotConfigured = &Error{Kind: KindContainerNotConfigured}
	ErrOperationInProgress    = &Error{Kind: KindOperationInProgress}
)

func (e *Error) Error() string {
	if e.text != "" {
		return e.text
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Path != "" {
			b.WriteString(" ")
			b.WriteString(e.Path)
		}
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// newError classifies err for op. An err that is already an *Error keeps its
// kind.
func newError(op, path string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: KindOf(err), Op: op, Path: path, Err: err}
}

// KindOf maps an error from any pipeline package to its Kind.
func KindOf(err error) Kind {
	var pe *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, archive.ErrInvalidArchive), errors.Is(err, codec.ErrInvalidHeader):
		return KindInvalidZipFile
	case errors.Is(err, guard.ErrFileTooLarge):
		return KindFileTooLarge
	case errors.Is(err, guard.ErrInvalidFileType):
		return KindInvalidFileType
	case errors.Is(err, guard.ErrUnsafePath):
		return KindUnsafePath
	case errors.Is(err, photos.ErrNotFound):
		return KindPhotoNotFound
	case errors.Is(err, inventory.ErrSnapshotUnsupported):
		return KindContainerNotConfigured
	default:
		return KindIO
	}
}

// Envelope carries a terminal failure across the event stream. It holds
// only immutable strings and is safe to share between goroutines.
type Envelope struct {
	kind    Kind
	code    string
	message string
}

// NewEnvelope wraps err.
func NewEnvelope(err error) Envelope {
	k := KindOf(err)
	if k == "" {
		k = KindIO
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Envelope{kind: k, code: k.Code(), message: msg}
}

// Kind returns the failure kind.
func (e Envelope) Kind() Kind { return e.kind }

// Code returns the support code.
func (e Envelope) Code() string { return e.code }

// Message returns the technical description of the original error.
func (e Envelope) Message() string { return e.message }

// UserMessage returns the user-facing message of the failure kind.
func (e Envelope) UserMessage() UserMessage { return e.kind.UserMessage() }

// ToError rebuilds a typed error. The result matches the kind's sentinel
// with errors.Is and prints the original message.
func (e Envelope) ToError() error {
	return &Error{Kind: e.kind, text: e.message}
}

func (e Envelope) String() string {
	return e.code + ": " + e.message
}
