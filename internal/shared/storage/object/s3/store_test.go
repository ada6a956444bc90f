package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ats-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  map[string][]byte
	lastGet string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.bodies == nil {
		f.bodies = map[string][]byte{}
	}
	f.bodies[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGet = aws.ToString(in.Key)
	data, ok := f.bodies[f.lastGet]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestSaveEncryptsAndPrefixes(t *testing.T) {
	client := &fakeS3{}
	store := newStore(client, "bucket", "/docs/", "kms-key")
	pdf := []byte("%PDF-1.4\nbody")

	obj, err := store.Save(context.Background(), "guest:1", "resume.pdf", bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if obj.Size != int64(len(pdf)) || obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected object %+v", obj)
	}
	if strings.Contains(obj.Key, "guest:1") {
		t.Fatalf("owner id leaked into key %s", obj.Key)
	}
	put := client.puts[0]
	if got := aws.ToString(put.Key); got != "docs/"+obj.Key {
		t.Fatalf("unexpected object key %s", got)
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected SSE-KMS, got %s", put.ServerSideEncryption)
	}

	rc, err := store.Open(context.Background(), obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, pdf) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSaveWithoutKMSUsesAES(t *testing.T) {
	client := &fakeS3{}
	store := newStore(client, "bucket", "", "")
	if _, err := store.SaveWithKey(context.Background(), "a/b.txt", "text/plain", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if client.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256, got %s", client.puts[0].ServerSideEncryption)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := newStore(&fakeS3{}, "bucket", "docs", "")
	if _, err := store.Open(context.Background(), "../other/file"); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
