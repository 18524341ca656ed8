package guard

import "errors"

// Stable error kinds for the boundary layer. Callers classify with
// errors.Is and map each kind to a user-facing status without
// re-interpreting messages.
var (
	// ErrValidation marks a rejected submission (wrong format or size).
	// Nothing has been written when it is returned.
	ErrValidation = errors.New("invalid submission")

	// ErrCatalogInconsistent marks a structurally valid decoded
	// identifier that names no asset: either a catalog inconsistency or
	// a spoofed payload. Distinct from "no watermark".
	ErrCatalogInconsistent = errors.New("recovered identifier not in catalog")

	// ErrOracleUnavailable marks a failed or timed-out oracle call.
	// Retrying is the caller's policy, not this layer's.
	ErrOracleUnavailable = errors.New("watermark oracle unavailable")

	// ErrStorage marks a blob store failure.
	ErrStorage = errors.New("blob storage failure")

	// ErrStorageExhausted is the capacity-specific storage failure, kept
	// separate so callers can message "insufficient storage".
	ErrStorageExhausted = errors.New("blob storage capacity exhausted")

	// ErrRecordNotFound marks a lookup of a nonexistent verification
	// record or asset.
	ErrRecordNotFound = errors.New("record not found")

	// ErrReportRejected marks a report attachment that violates the
	// once-only / tamper-detected / verifying-party rules.
	ErrReportRejected = errors.New("report not allowed for this record")
)
