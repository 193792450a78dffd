package snapshot

import (
	"reflect"
	"testing"

	"fh-go/internal/checksum"
)

func TestSnapshot_UpdateDeleteGet(t *testing.T) {
	s := New(checksum.SHA256)
	s.Update("a.txt", Record{Size: 3, ModTime: 10, Digest: "aa"})
	s.Update("a.txt", Record{Size: 4, ModTime: 11, Digest: "bb"})

	rec, ok := s.Get("a.txt")
	if !ok {
		t.Fatal("Get(a.txt) not found")
	}
	if rec.Size != 4 || rec.Digest != "bb" {
		t.Errorf("Get(a.txt) = %+v, want replaced record", rec)
	}

	s.Delete("a.txt")
	s.Delete("never-existed")
	if _, ok := s.Get("a.txt"); ok {
		t.Error("Get(a.txt) found after Delete")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSnapshot_Clear(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{name: "component prefix", prefix: "a/b", want: []string{"a/bc", "z"}},
		{name: "trailing slash", prefix: "a/b/", want: []string{"a/bc", "z"}},
		{name: "exact file", prefix: "z", want: []string{"a/b", "a/b/c", "a/bc"}},
		{name: "everything", prefix: "", want: []string{}},
		{name: "no match", prefix: "q", want: []string{"a/b", "a/b/c", "a/bc", "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(checksum.SHA256)
			for _, p := range []string{"a/b", "a/b/c", "a/bc", "z"} {
				s.Update(p, Record{Size: 1})
			}
			s.Clear(tt.prefix)
			if got := s.Paths(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paths() after Clear(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestSnapshot_Merge(t *testing.T) {
	a := New(checksum.MD5)
	a.Update("x", Record{Size: 1, Digest: "old"})
	a.Update("y", Record{Size: 2})

	b := New(checksum.MD5)
	b.Update("x", Record{Size: 5, Digest: "new"})
	b.Update("z", Record{Size: 3})

	a.Merge(b)

	if got := a.Paths(); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Errorf("Paths() = %v", got)
	}
	if rec, _ := a.Get("x"); rec.Digest != "new" {
		t.Errorf("x digest = %q, want other's record to win", rec.Digest)
	}
	if a.TotalSize() != 10 {
		t.Errorf("TotalSize() = %d, want 10", a.TotalSize())
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	s := New(checksum.SHA256)
	s.Message = "m"
	s.Update("a", Record{Size: 1})

	c := s.Clone()
	c.Update("b", Record{Size: 2})
	c.Delete("a")

	if _, ok := s.Get("a"); !ok {
		t.Error("original lost a after mutating clone")
	}
	if _, ok := s.Get("b"); ok {
		t.Error("original gained b after mutating clone")
	}
	if c.Message != "m" || c.Algorithm != checksum.SHA256 {
		t.Errorf("clone header = %q/%v", c.Message, c.Algorithm)
	}
}

func TestSnapshot_MissingDigests(t *testing.T) {
	s := New(checksum.SHA256)
	s.Update("b", Record{Size: 1})
	s.Update("a", Record{Size: 1})
	s.Update("c", Record{Size: 1, Digest: "cc"})

	if got := s.MissingDigests(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("MissingDigests() = %v", got)
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"a/b/c", "a", true},
		{"a/b/c", "a/b", true},
		{"a/b/c", "a/b/c", true},
		{"a/bc", "a/b", false},
		{"a", "a/b", false},
		{"anything", "", true},
		{"anything", ".", true},
		{"a/b", "a/", true},
	}
	for _, tt := range tests {
		if got := HasPathPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("HasPathPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}
