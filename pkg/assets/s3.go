package assets

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// GetObjectAPI is the part of the S3 client the asset source needs.
// *s3.Client satisfies it.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FS serves build output published to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	fsys := assets.NewS3FS(client, "my-builds", "app/1.4.2/")
//	manifest, err := assets.LoadFS(fsys, "manifest.json")
type S3FS struct {
	client  GetObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3FS creates an fs.FS over the objects below prefix in bucket.
func NewS3FS(client GetObjectAPI, bucket, prefix string) *S3FS {
	return &S3FS{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
	}
}

// WithTimeout sets the per-object fetch timeout.
func (s *S3FS) WithTimeout(d time.Duration) *S3FS {
	s.timeout = d
	return s
}

// Open fetches the object for name and returns it as an in-memory file.
func (s *S3FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join(s.prefix, name)),
	})
	if err != nil {
		if isNotFound(err) {
			err = fs.ErrNotExist
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	modTime := time.Time{}
	if out.LastModified != nil {
		modTime = *out.LastModified
	}

	return &s3File{
		Reader: bytes.NewReader(data),
		info: s3FileInfo{
			name:    path.Base(name),
			size:    int64(len(data)),
			modTime: modTime,
		},
	}, nil
}

// ReadFile implements fs.ReadFileFS.
func (s *S3FS) ReadFile(name string) ([]byte, error) {
	f, err := s.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if stderrors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if stderrors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// s3File is an fs.File backed by a fully read object. The embedded
// bytes.Reader provides Seek for http.FileServerFS range requests.
type s3File struct {
	*bytes.Reader
	info s3FileInfo
}

func (f *s3File) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *s3File) Close() error               { return nil }

type s3FileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i s3FileInfo) Name() string       { return i.name }
func (i s3FileInfo) Size() int64        { return i.size }
func (i s3FileInfo) Mode() fs.FileMode  { return 0o444 }
func (i s3FileInfo) ModTime() time.Time { return i.modTime }
func (i s3FileInfo) IsDir() bool        { return false }
func (i s3FileInfo) Sys() any           { return nil }
