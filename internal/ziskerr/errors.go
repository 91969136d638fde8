// Package ziskerr defines the typed error kinds used across the pipeline
// (§7 Error Handling Design), compatible with errors.Is/errors.As.
package ziskerr

import (
	"errors"
	"fmt"
)

// Kind identifies a fatal error category.
type Kind int

const (
	KindRomBuild Kind = iota
	KindAddressOutOfRange
	KindEmulationNotComplete
	KindAsmService
	KindDistributionMismatch
	KindJobLost
	KindPermissionDenied
	KindResourceExhausted
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindRomBuild:
		return "RomBuildError"
	case KindAddressOutOfRange:
		return "AddressOutOfRange"
	case KindEmulationNotComplete:
		return "EmulationNotComplete"
	case KindAsmService:
		return "AsmServiceError"
	case KindDistributionMismatch:
		return "DistributionMismatch"
	case KindJobLost:
		return "JobLost"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "UnknownError"
	}
}

// Error is a typed, kind-tagged error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ziskerr.RomBuild) style sentinel-free kind checks
// via a zero-value Error carrying only Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// RomBuildf builds a RomBuildError.
func RomBuildf(format string, args ...interface{}) *Error { return newf(KindRomBuild, format, args...) }

// AddressOutOfRange builds an AddressOutOfRange error for pc.
func AddressOutOfRange(pc uint64) *Error {
	return newf(KindAddressOutOfRange, "pc %#x out of range", pc)
}

// EmulationNotComplete builds an EmulationNotComplete error.
func EmulationNotComplete(stepsRun, maxSteps uint64) *Error {
	return newf(KindEmulationNotComplete, "reached max_steps=%d after %d steps without halt", maxSteps, stepsRun)
}

// AsmServicef builds an AsmServiceError.
func AsmServicef(format string, args ...interface{}) *Error {
	return newf(KindAsmService, format, args...)
}

// DistributionMismatchf builds a DistributionMismatch error.
func DistributionMismatchf(format string, args ...interface{}) *Error {
	return newf(KindDistributionMismatch, format, args...)
}

// JobLost builds a JobLost error for jobID.
func JobLost(jobID string) *Error {
	return newf(KindJobLost, "job %s lost after contributions were accepted", jobID)
}

// PermissionDenied builds a PermissionDenied error.
func PermissionDenied(reason string) *Error {
	return newf(KindPermissionDenied, "%s", reason)
}

// ResourceExhausted builds a ResourceExhausted error.
func ResourceExhausted(reason string) *Error {
	return newf(KindResourceExhausted, "%s", reason)
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return newf(KindInvalidArgument, format, args...)
}

// Sentinel kind markers usable with errors.Is(err, ziskerr.RomBuild).
var (
	RomBuild              = &Error{Kind: KindRomBuild}
	AddressOutOfRangeKind = &Error{Kind: KindAddressOutOfRange}
	EmulationNotCompleteKind = &Error{Kind: KindEmulationNotComplete}
	AsmService            = &Error{Kind: KindAsmService}
	DistributionMismatch  = &Error{Kind: KindDistributionMismatch}
	JobLostKind           = &Error{Kind: KindJobLost}
	PermissionDeniedKind  = &Error{Kind: KindPermissionDenied}
	ResourceExhaustedKind = &Error{Kind: KindResourceExhausted}
	InvalidArgument       = &Error{Kind: KindInvalidArgument}
)
