package model

import (
	"fmt"
	"time"
)

// ProtectionAlgorithm identifies the perceptual watermarking scheme an
// asset was protected with. The set is closed: values arrive from
// config or CLI flags and are parsed, never passed through as strings.
type ProtectionAlgorithm string

const (
	AlgorithmEditGuard  ProtectionAlgorithm = "EditGuard"
	AlgorithmOmniGuard  ProtectionAlgorithm = "OmniGuard"
	AlgorithmRobustWide ProtectionAlgorithm = "RobustWide"
)

// ParseProtectionAlgorithm converts a string into a ProtectionAlgorithm,
// rejecting anything outside the closed set.
func ParseProtectionAlgorithm(s string) (ProtectionAlgorithm, error) {
	switch ProtectionAlgorithm(s) {
	case AlgorithmEditGuard, AlgorithmOmniGuard, AlgorithmRobustWide:
		return ProtectionAlgorithm(s), nil
	default:
		return "", fmt.Errorf("unknown protection algorithm: %q", s)
	}
}

// User is the minimal owner/verifier record the pipeline needs: an
// identity to classify relations against and a contact for the
// notification policy. Account management lives outside this module.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Asset is a protected image. The ID is assigned by the catalog at
// insert time and is immutable; it is the value embedded in the
// watermark payload, so it must fit in 39 bits. The two blob paths are
// set only when the creation transaction commits.
type Asset struct {
	ID           int64
	OwnerID      int64
	Filename     string
	Copyright    string // free-text provenance note
	Algorithm    ProtectionAlgorithm
	PristinePath string
	MarkedPath   string
	CreatedAt    time.Time
}

// VerificationRecord is one verification attempt. Token is the
// externally shareable correlation identifier. AssetID and Ratio are
// nil when no watermark was recovered; Ratio is a percentage in
// [0, 100]. The reporter fields may be set once, by the verifying
// party, only when a tamper was detected.
type VerificationRecord struct {
	ID         int64
	Token      string
	VerifierID int64
	Filename   string
	Marked     bool // watermark present
	AssetID    *int64
	Ratio      *float64
	Algorithm  ProtectionAlgorithm
	ReportLink string
	ReportText string
	ReportedAt *time.Time
	CreatedAt  time.Time
}

// Relation classifies the verifying party against the recovered
// asset's owner.
type Relation string

const (
	RelationSelf  Relation = "self"  // verifier owns the recovered asset
	RelationOther Relation = "other" // asset recovered, different owner
	RelationNone  Relation = "none"  // no asset recovered
)
