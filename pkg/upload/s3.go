package upload

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/polyglotops/crossbench/pkg/config"
)

const preflightKey = ".crossbench-write-test"

// s3Uploader implements Uploader for S3-compatible storage.
type s3Uploader struct {
	log    logrus.FieldLogger
	cfg    *config.UploadConfig
	client *s3.Client
}

// Ensure interface compliance.
var _ Uploader = (*s3Uploader)(nil)

// NewS3Uploader creates a new S3 uploader from the given configuration.
func NewS3Uploader(
	log logrus.FieldLogger,
	cfg *config.UploadConfig,
) (Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("upload bucket is required")
	}

	return &s3Uploader{
		log:    log.WithField("component", "s3-uploader"),
		cfg:    cfg,
		client: newS3Client(cfg),
	}, nil
}

func newS3Client(cfg *config.UploadConfig) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return s3.New(s3.Options{}, opts...)
}

// Preflight verifies S3 connectivity by writing a small probe object
// with a short expiry.
func (u *s3Uploader) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("crossbench write test: %s", time.Now().UTC().Format(time.RFC3339))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(u.resolveKey(preflightKey)),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
		Expires:     aws.Time(time.Now().Add(24 * time.Hour)),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", u.cfg.Bucket, err)
	}

	return nil
}

// UploadDir uploads all files under localDir to S3. A per-file failure
// aborts the upload; the error reports how far it got.
func (u *s3Uploader) UploadDir(ctx context.Context, localDir string) error {
	files, err := collectFiles(localDir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", localDir, err)
	}

	if len(files) == 0 {
		u.log.WithField("dir", localDir).Warn("Nothing to upload")

		return nil
	}

	var totalBytes int64

	for i, path := range files {
		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		key := u.resolveKey(filepath.ToSlash(relPath))

		size, err := u.uploadFile(ctx, path, key)
		if err != nil {
			return fmt.Errorf(
				"uploading %s (%d of %d files done): %w",
				relPath, i, len(files), err,
			)
		}

		totalBytes += size
	}

	u.log.WithFields(logrus.Fields{
		"files":  len(files),
		"size":   units.HumanSize(float64(totalBytes)),
		"bucket": u.cfg.Bucket,
		"prefix": u.cfg.Prefix,
	}).Info("Upload completed")

	return nil
}

// collectFiles lists every regular file under dir.
func collectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// uploadFile uploads a single file to S3 and returns its size.
func (u *s3Uploader) uploadFile(ctx context.Context, localPath, key string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("statting file: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(detectContentType(localPath)),
	}

	if u.cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(u.cfg.StorageClass)
	}

	if u.cfg.ACL != "" {
		input.ACL = s3types.ObjectCannedACL(u.cfg.ACL)
	}

	if u.cfg.CacheControl != "" {
		input.CacheControl = aws.String(u.cfg.CacheControl)
	}

	u.log.WithFields(logrus.Fields{
		"key":    key,
		"size":   units.HumanSize(float64(info.Size())),
		"bucket": u.cfg.Bucket,
	}).Debug("Uploading file")

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return 0, fmt.Errorf("PutObject: %w", err)
	}

	return info.Size(), nil
}

// resolveKey joins a relative path onto the configured prefix. Results
// artifacts stay directly under the prefix so the API storage reader
// sees the same names the runner wrote.
func (u *s3Uploader) resolveKey(relPath string) string {
	if u.cfg.Prefix == "" {
		return relPath
	}

	return strings.TrimRight(u.cfg.Prefix, "/") + "/" + relPath
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "application/octet-stream"
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	// Not in the builtin mime table.
	switch ext {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	}

	return "application/octet-stream"
}
