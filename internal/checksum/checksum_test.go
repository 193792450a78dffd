package checksum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Algorithm
		wantErr bool
	}{
		{name: "sha256", input: "sha256", want: SHA256},
		{name: "md5", input: "md5", want: MD5},
		{name: "uppercase rejected", input: "SHA256", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "unsupported", input: "sha1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownAlgorithm) {
					t.Fatalf("Parse(%q) error = %v, want ErrUnknownAlgorithm", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		data string
		want string
	}{
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{MD5, "", "d41d8cd98f00b204e9800998ecf8427e"},
		{MD5, "hello world", "5eb63bbbe01eeed093cb22bb8f5acdc3"},
	}

	for _, tt := range tests {
		t.Run(tt.alg.String()+"/"+tt.data, func(t *testing.T) {
			if got := Compute(tt.alg, []byte(tt.data)); got != tt.want {
				t.Errorf("Compute() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ComputeFile(SHA256, path)
	if err != nil {
		t.Fatalf("ComputeFile() error = %v", err)
	}
	if want := Compute(SHA256, []byte("hello world")); got != want {
		t.Errorf("ComputeFile() = %s, want %s", got, want)
	}

	if _, err := ComputeFile(SHA256, filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ComputeFile(missing) error = %v, want ErrNotExist", err)
	}
}

func TestComputeReader(t *testing.T) {
	digest, n, err := ComputeReader(MD5, strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("ComputeReader() error = %v", err)
	}
	if n != 11 {
		t.Errorf("bytes read = %d, want 11", n)
	}
	if digest != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("digest = %s", digest)
	}
}

func TestFromDigest(t *testing.T) {
	if a, err := FromDigest(Compute(SHA256, nil)); err != nil || a != SHA256 {
		t.Errorf("FromDigest(sha256) = %v, %v", a, err)
	}
	if a, err := FromDigest(Compute(MD5, nil)); err != nil || a != MD5 {
		t.Errorf("FromDigest(md5) = %v, %v", a, err)
	}
	if _, err := FromDigest("abc"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("FromDigest(abc) error = %v, want ErrUnknownAlgorithm", err)
	}
}
