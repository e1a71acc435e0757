package assets

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, aws.ToString(in.Bucket)+"/"+key)
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader([]byte(body))),
		LastModified: aws.Time(time.Unix(1700000000, 0)),
	}, nil
}

func TestS3FS(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"app/1.0.0/manifest.json":   groupedJSON,
		"app/1.0.0/runtime.1a2b.js": "window.runtime=1",
	}}
	fsys := NewS3FS(client, "builds", "app/1.0.0")

	m, err := LoadFS(fsys, "manifest.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src, err := InlineSource(fsys, m, "runtime.js")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != "window.runtime=1" {
		t.Errorf("InlineSource() = %q", src)
	}

	if client.keys[0] != "builds/app/1.0.0/manifest.json" {
		t.Errorf("first key = %q", client.keys[0])
	}
}

func TestS3FSNotFound(t *testing.T) {
	fsys := NewS3FS(&fakeS3{}, "builds", "")

	_, err := fsys.Open("missing.js")
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want fs.ErrNotExist", err)
	}

	if _, err := fsys.Open("../escape.js"); !stderrors.Is(err, fs.ErrInvalid) {
		t.Errorf("Open(../escape.js) error = %v, want fs.ErrInvalid", err)
	}
}

func TestS3FSServesFiles(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"app.3c4d.js": "console.log('app')",
	}}
	handler := http.FileServerFS(NewS3FS(client, "builds", ""))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.3c4d.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "console.log('app')" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
