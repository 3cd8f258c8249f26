package exporter

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/logging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ interfaces.ArtifactUploader = (*ObjectUploader)(nil)

var contentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
	".sas":  "text/plain; charset=utf-8",
}

// ObjectStoreOptions configures an S3-compatible upload target
type ObjectStoreOptions struct {
	Endpoint  string // host:port or URL
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ObjectUploader copies published files to an S3-compatible bucket
type ObjectUploader struct {
	client *minio.Client
	bucket string
	prefix string
	region string
}

// NewObjectUploader creates a minio client for the bucket
func NewObjectUploader(opts ObjectStoreOptions) (*ObjectUploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required")
	}

	endpoint := opts.Endpoint
	useSSL := opts.UseSSL
	if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: useSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ObjectUploader{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		region: opts.Region,
	}, nil
}

// ensureBucket creates the bucket on first use
func (u *ObjectUploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}

	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", u.bucket, err)
	}
	logging.Info("Created bucket", "bucket", u.bucket)
	return nil
}

// objectKey places a file under the configured prefix
func (u *ObjectUploader) objectKey(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

// Upload implements ArtifactUploader
func (u *ObjectUploader) Upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := u.ensureBucket(ctx); err != nil {
		return err
	}

	for _, p := range paths {
		key := u.objectKey(p)
		contentType, ok := contentTypes[filepath.Ext(p)]
		if !ok {
			contentType = "application/octet-stream"
		}

		info, err := u.client.FPutObject(ctx, u.bucket, key, p, minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return fmt.Errorf("failed to upload %s to %s/%s: %w", p, u.bucket, key, err)
		}
		logging.Debug("Uploaded artifact", "bucket", u.bucket, "key", key, "size", info.Size)
	}

	logging.Info("Artifacts uploaded", "bucket", u.bucket, "count", len(paths))
	return nil
}
