package fh

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so snapshot timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. The CLI uses it when an
// explicit timestamp is given.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs. They identify one CLI run in logs and
// in the operation journal.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
