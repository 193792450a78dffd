package scan

import (
	"path"
	"strings"

	"fh-go/internal/fs"
	"fh-go/internal/snapshot"
)

// policy decides which paths a pass visits. Prefixes are kept in NFC so
// user-typed filters match decomposed names read from disk.
type policy struct {
	exclude    []string
	exclusive  []string
	restricted bool
	ignore     *fs.IgnoreMatcher
}

func newPolicy(opts Options) policy {
	p := policy{
		restricted: opts.Exclusive != nil,
		ignore:     opts.Ignore,
	}
	for _, e := range opts.Exclude {
		if e = cleanPrefix(e); e != "" {
			p.exclude = append(p.exclude, e)
		}
	}
	for _, e := range opts.Exclusive {
		p.exclusive = append(p.exclusive, cleanPrefix(e))
	}
	return p
}

func cleanPrefix(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return fs.Normalize(p)
}

func (p policy) excluded(rel string) bool {
	for _, e := range p.exclude {
		if snapshot.HasPathPrefix(rel, e) {
			return true
		}
	}
	return false
}

func (p policy) allowed(rel string) bool {
	if !p.restricted {
		return true
	}
	for _, a := range p.exclusive {
		if snapshot.HasPathPrefix(rel, a) {
			return true
		}
	}
	return false
}

// leadsToAllowed reports whether dir is an ancestor of some allowed prefix.
func (p policy) leadsToAllowed(dir string) bool {
	for _, a := range p.exclusive {
		if snapshot.HasPathPrefix(a, dir) {
			return true
		}
	}
	return false
}

// skipFile reports whether a file is outside the pass.
func (p policy) skipFile(rel string) bool {
	rel = fs.Normalize(rel)
	return p.excluded(rel) || p.ignore.Match(rel) || !p.allowed(rel)
}

// skipDir reports whether a directory's subtree can be pruned.
func (p policy) skipDir(rel string) bool {
	rel = fs.Normalize(rel)
	if p.excluded(rel) || p.ignore.MatchDir(rel) {
		return true
	}
	return p.restricted && !p.allowed(rel) && !p.leadsToAllowed(rel)
}
