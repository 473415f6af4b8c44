// Package storage moves print files in and out of the MinIO bucket and
// bundles them for the admin export.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"campusprint/internal/config"
)

// Client wraps the MinIO client with the narrow surface the print workflow
// needs: deterministic keyed uploads, bulk fetch and a public URL for the
// payment QR image.
type Client struct {
	internalClient *minio.Client
	publicBase     url.URL
	bucketName     string
}

// NewClient initializes the MinIO client from config and ensures the target
// bucket exists.
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	bucketLookup := minio.BucketLookupAuto
	switch strings.ToLower(strings.TrimSpace(cfg.BucketLookup)) {
	case "", "auto":
		bucketLookup = minio.BucketLookupAuto
	case "dns":
		bucketLookup = minio.BucketLookupDNS
	case "path":
		bucketLookup = minio.BucketLookupPath
	default:
		return nil, fmt.Errorf("invalid minio bucket lookup %q", cfg.BucketLookup)
	}

	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	parsedPublicEndpoint, err := url.Parse(cfg.PublicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if parsedPublicEndpoint.Host == "" {
		return nil, fmt.Errorf("invalid minio public endpoint, host missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		internalClient: internalClient,
		publicBase:     *parsedPublicEndpoint,
		bucketName:     cfg.Bucket,
	}, nil
}

// PrintFileKey derives the deterministic storage key for one file of a job.
// Keys are segregated per owner and job; name must already be disambiguated
// within the submission (see UniqueName).
func PrintFileKey(ownerID, jobID uint, name string) string {
	return fmt.Sprintf("print-files/%d/%d/%s", ownerID, jobID, path.Base(name))
}

// StorePrintFile uploads one print file under its derived key and returns
// the key.
func (c *Client) StorePrintFile(ctx context.Context, ownerID, jobID uint, name string, reader io.Reader, size int64, contentType string) (string, error) {
	key := PrintFileKey(ownerID, jobID, name)
	if err := c.UploadObject(ctx, key, reader, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// UploadObject writes an object under an explicit key. Used directly for the
// payment QR image.
func (c *Client) UploadObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := c.internalClient.PutObject(ctx, c.bucketName, key, reader, size, opts); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Fetch reads one object fully into memory.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.internalClient.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// FetchAll retrieves every referenced object. A missing object does not
// abort the export; its filename is returned in missing so the caller can
// surface the gap. Any other storage failure is fatal.
func (c *Client) FetchAll(ctx context.Context, refs []FileRef) ([]Entry, []string, error) {
	entries := make([]Entry, 0, len(refs))
	var missing []string
	for _, ref := range refs {
		data, err := c.Fetch(ctx, ref.Key)
		if err != nil {
			if IsNoSuchKey(err) {
				missing = append(missing, ref.Filename)
				continue
			}
			return nil, nil, err
		}
		entries = append(entries, Entry{Filename: ref.Filename, Data: data})
	}
	return entries, missing, nil
}

// PublicURL returns the non-signed public URL for an object. Only used for
// the payment QR image, which is not sensitive.
func (c *Client) PublicURL(key string) string {
	u := c.publicBase
	u.Path = path.Join("/", c.bucketName, key)
	return u.String()
}
