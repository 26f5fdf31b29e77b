// Package upload stores report files in S3.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/yarascan/pkg/shared/config"
)

// Target is an S3 object location.
type Target struct {
	Bucket string
	Key    string
}

func (t Target) String() string {
	return fmt.Sprintf("s3://%s/%s", t.Bucket, t.Key)
}

// ParseTarget parses "s3://bucket/key". A key that is empty or ends with "/"
// is a prefix; the uploaded file name is appended to it.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid upload target %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return Target{}, fmt.Errorf("invalid upload target %q: only s3:// is supported", raw)
	}
	if u.Host == "" {
		return Target{}, fmt.Errorf("invalid upload target %q: bucket is empty", raw)
	}
	return Target{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// objectKey returns the key of the uploaded file.
func (t Target) objectKey(localPath string) string {
	if t.Key == "" || strings.HasSuffix(t.Key, "/") {
		return path.Join(t.Key, filepath.Base(localPath))
	}
	return t.Key
}

// Uploader uploads files to S3.
type Uploader struct {
	logger   hclog.Logger
	uploader s3manageriface.UploaderAPI
}

// New creates an uploader from the upload.s3 configuration and the usual AWS
// environment (credentials, region, profile).
func New(logger hclog.Logger, cfg *config.Config) (*Uploader, error) {
	s3Config := cfg.Upload.S3

	awsConfig := aws.Config{}
	if s3Config.Region != "" {
		awsConfig.Region = aws.String(s3Config.Region)
	}
	if s3Config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s3Config.Endpoint)
	}
	if config.GetBoolValue(s3Config, "ForcePathStyle", false) {
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           s3Config.Profile,
		Config:            awsConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create s3 session: %w", err)
	}

	return &Uploader{
		logger:   logger,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// UploadFile uploads the file at localPath and returns the object location.
func (u *Uploader) UploadFile(ctx context.Context, localPath string, target Target) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file with results: %w", err)
	}
	defer f.Close()

	key := target.objectKey(localPath)
	u.logger.Info("uploading report", "file", localPath, "bucket", target.Bucket, "key", key)

	result, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) {
			u.logger.Error("s3 error", "code", aerr.Code(), "message", aerr.Message())
		}
		return "", fmt.Errorf("failed to upload %q to %s: %w", localPath, Target{Bucket: target.Bucket, Key: key}, err)
	}

	u.logger.Info("report uploaded", "location", result.Location)
	return result.Location, nil
}
