package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"fh-go/internal/checksum"
)

// ErrFormat is returned when encoded snapshot text cannot be decoded.
var ErrFormat = errors.New("malformed snapshot")

const (
	headerChecksum  = "#checksum"
	headerTimestamp = "#timestamp"
	headerMessage   = "#message"
)

// Encode renders s as text. A non-zero timestamp (microseconds) is embedded
// as a header so the payload can be checked against the name it is stored
// under. File lines are ordered by path, so the output is deterministic.
func Encode(s *Snapshot, timestamp int64) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\n", headerChecksum, s.Algorithm)
	if timestamp != 0 {
		fmt.Fprintf(&buf, "%s %d\n", headerTimestamp, timestamp)
	}
	if s.Message != "" {
		fmt.Fprintf(&buf, "%s %s\n", headerMessage, Escape(s.Message))
	}
	for _, p := range s.Paths() {
		rec := s.files[p]
		fmt.Fprintf(&buf, "%s %d %d %s\n", rec.Digest, rec.Size, rec.ModTime, Escape(p))
	}
	return buf.Bytes()
}

// Decode parses text produced by Encode. It returns the snapshot and the
// embedded timestamp, which is zero when the header is absent.
func Decode(data []byte) (*Snapshot, int64, error) {
	if !utf8.Valid(data) {
		return nil, 0, fmt.Errorf("%w: not valid UTF-8", ErrFormat)
	}

	text := string(data)
	if text != "" {
		if !strings.HasSuffix(text, "\n") {
			return nil, 0, fmt.Errorf("%w: missing trailing newline", ErrFormat)
		}
		text = text[:len(text)-1]
	}

	var (
		s         *Snapshot
		timestamp int64
		message   string
		files     = make(map[string]Record)
	)

	lines := strings.Split(text, "\n")
	if text == "" {
		lines = nil
	}
	for i, line := range lines {
		lineNo := i + 1
		fields := strings.Split(line, " ")

		if len(fields) == 2 && strings.HasPrefix(fields[0], "#") {
			switch fields[0] {
			case headerChecksum:
				alg, err := checksum.Parse(fields[1])
				if err != nil {
					return nil, 0, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
				}
				s = New(alg)
				continue
			case headerTimestamp:
				ts, err := strconv.ParseInt(fields[1], 10, 64)
				if err != nil {
					return nil, 0, fmt.Errorf("%w: line %d: bad timestamp %q", ErrFormat, lineNo, fields[1])
				}
				timestamp = ts
				continue
			case headerMessage:
				msg, err := Unescape(fields[1])
				if err != nil {
					return nil, 0, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
				}
				message = msg
				continue
			}
		}

		if len(fields) != 4 {
			return nil, 0, fmt.Errorf("%w: line %d: expected 4 fields, got %d", ErrFormat, lineNo, len(fields))
		}
		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: bad size %q", ErrFormat, lineNo, fields[1])
		}
		mtime, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: bad modification time %q", ErrFormat, lineNo, fields[2])
		}
		path, err := Unescape(fields[3])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrFormat, lineNo, err)
		}
		if _, dup := files[path]; dup {
			return nil, 0, fmt.Errorf("%w: line %d: duplicate path %q", ErrFormat, lineNo, path)
		}
		files[path] = Record{Size: size, ModTime: mtime, Digest: fields[0]}
	}

	if s == nil {
		return nil, 0, fmt.Errorf("%w: missing %s header", ErrFormat, headerChecksum)
	}
	s.Message = message
	s.files = files
	return s, timestamp, nil
}

// Escape encodes a path or message so it contains no spaces or newlines.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case ' ':
			b.WriteString(`\_`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. Unknown or dangling escape sequences are errors.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case '_':
			b.WriteByte(' ')
		default:
			return "", fmt.Errorf("unknown escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
