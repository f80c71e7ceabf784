package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"edusphere/internal/portal"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 keeps objects in memory. Multipart calls are never made for the
// small catalogs used here.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	bucket  string
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject), bucket: bucket}
}

var errMultipart = errors.New("multipart upload not supported by fake")

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = fakeObject{data: data, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if *in.Bucket != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

func TestS3Vault_PutAndGetCatalog(t *testing.T) {
	client := newFakeS3("catalogs")
	v := newS3VaultWithClient("cloud", "catalogs", "edusphere", client)

	doc := "version = 4\n"
	if err := v.PutCatalog("seed.toml", strings.NewReader(doc), int64(len(doc)), 4); err != nil {
		t.Fatalf("PutCatalog() error = %v", err)
	}

	if _, ok := client.objects["edusphere/catalogs/seed.toml"]; !ok {
		t.Error("latest catalog object not written")
	}
	if _, ok := client.objects["edusphere/archive/4-seed.toml"]; !ok {
		t.Error("archive catalog object not written")
	}

	var buf bytes.Buffer
	if err := v.GetCatalog("seed.toml", &buf); err != nil {
		t.Fatalf("GetCatalog() error = %v", err)
	}
	if buf.String() != doc {
		t.Errorf("GetCatalog() = %q, want %q", buf.String(), doc)
	}

	version, err := v.GetCatalogVersion("seed.toml")
	if err != nil {
		t.Fatalf("GetCatalogVersion() error = %v", err)
	}
	if version != 4 {
		t.Errorf("GetCatalogVersion() = %d, want 4", version)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	v := newS3VaultWithClient("cloud", "catalogs", "", newFakeS3("catalogs"))

	version, err := v.GetCatalogVersion("seed.toml")
	if err != nil {
		t.Fatalf("GetCatalogVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("GetCatalogVersion() = %d, want 0", version)
	}

	var buf bytes.Buffer
	if err := v.GetCatalog("seed.toml", &buf); !errors.Is(err, portal.ErrNotFound) {
		t.Errorf("GetCatalog() error = %v, want ErrNotFound", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	client := newFakeS3("catalogs")
	v := newS3VaultWithClient("cloud", "catalogs", "", client)

	if err := v.PutCatalog("seed.toml", strings.NewReader("abc"), 7, 1); err == nil {
		t.Fatal("PutCatalog() expected error for size mismatch")
	}
	if len(client.objects) != 0 {
		t.Errorf("objects written despite size mismatch: %d", len(client.objects))
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	client := newFakeS3("catalogs")

	if err := newS3VaultWithClient("cloud", "catalogs", "", client).ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
	if err := newS3VaultWithClient("cloud", "other", "", client).ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}
