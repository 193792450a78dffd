package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
// Multipart calls are not expected for the small objects used here.
type fakeS3 struct {
	mu         sync.Mutex
	objects    map[string][]byte
	bucketErr  error
	listCalls  int
	lastPutKey string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.lastPutKey = aws.ToString(in.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for i, k := range keys {
		if i == 2 {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(keys[1])
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Vault_PutGet(t *testing.T) {
	fake := newFakeS3()
	v := newS3Vault("offsite", "bucket", "/backups/laptop/", fake)

	data := "compressed snapshot"
	if err := v.Put("1-abc.idx", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutKey != "backups/laptop/snapshots/1-abc.idx" {
		t.Errorf("object key = %q, want prefix applied", fake.lastPutKey)
	}

	var buf bytes.Buffer
	if err := v.Get("1-abc.idx", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("Get() = %q, want %q", buf.String(), data)
	}

	if err := v.Get("missing.idx", &buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestS3Vault_List(t *testing.T) {
	fake := newFakeS3()
	v := newS3Vault("offsite", "bucket", "", fake)

	for _, name := range []string{"3-c.idx", "1-a.idx", "2-b.idx"} {
		if err := v.Put(name, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("Put(%s) error = %v", name, err)
		}
	}
	fake.objects["other/unrelated"] = []byte("x")

	names, err := v.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"1-a.idx", "2-b.idx", "3-c.idx"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
	if fake.listCalls != 2 {
		t.Errorf("ListObjectsV2 called %d times, want 2 pages", fake.listCalls)
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	v := newS3Vault("offsite", "bucket", "", fake)
	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.bucketErr = errors.New("forbidden")
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for inaccessible bucket")
	}
}

func TestNewS3Vault_RequiresBucket(t *testing.T) {
	if _, err := NewS3Vault(context.Background(), "offsite", S3Options{}); err == nil {
		t.Error("NewS3Vault() expected error without bucket")
	}
}
