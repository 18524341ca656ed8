package guard

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// TokenGenerator produces the externally shareable correlation tokens
// that key verification records and their stored artifacts.
type TokenGenerator interface {
	New() string
}

// UUIDGenerator produces random UUID tokens.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
