package store

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var filenamePattern = regexp.MustCompile(`^(\d+)-([a-z0-9]+)\.idx$`)

// Reference identifies one stored snapshot: when it was taken and the digest
// of its compressed encoding.
type Reference struct {
	Timestamp int64 // microseconds since the Unix epoch
	Checksum  string
}

// Filename returns the canonical name the snapshot is stored under.
func (r Reference) Filename() string {
	return fmt.Sprintf("%d-%s.idx", r.Timestamp, r.Checksum)
}

// Time converts the timestamp to a time.Time.
func (r Reference) Time() time.Time {
	return time.UnixMicro(r.Timestamp)
}

// Short returns an abbreviated checksum for display.
func (r Reference) Short() string {
	if len(r.Checksum) > 12 {
		return r.Checksum[:12]
	}
	return r.Checksum
}

func (r Reference) String() string { return r.Filename() }

// ParseFilename parses a canonical snapshot filename.
func ParseFilename(name string) (Reference, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return Reference{}, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Reference{}, false
	}
	return Reference{Timestamp: ts, Checksum: m[2]}, true
}
