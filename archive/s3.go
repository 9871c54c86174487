/*
Package archive uploads finished session artifacts to S3.

The AWS library configures itself from the environment (credentials, region).
Upload failures are returned to the caller, which logs them; a session is never
failed by its archive.
*/
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/dustin/go-humanize"
	"github.com/rotblauer/posacc/params"
)

var ErrNoBucket = errors.New("no archive bucket configured")

type Archiver struct {
	config   *params.ArchiveConfig
	uploader s3manageriface.UploaderAPI
	logger   *slog.Logger
}

// NewArchiver creates an archiver with an uploader built from the environment.
func NewArchiver(config *params.ArchiveConfig) (*Archiver, error) {
	if config == nil || config.Bucket == "" {
		return nil, ErrNoBucket
	}
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return newArchiver(config, s3manager.NewUploader(sess)), nil
}

func newArchiver(config *params.ArchiveConfig, uploader s3manageriface.UploaderAPI) *Archiver {
	return &Archiver{
		config:   config,
		uploader: uploader,
		logger:   slog.With("d", "archive", "bucket", config.Bucket),
	}
}

// objectKey is <prefix>/<session>/<file base name>.
func objectKey(prefix, sessionID, file string) string {
	return path.Join(prefix, sessionID, filepath.Base(file))
}

// Upload puts every non-empty path under the session's key prefix and returns the keys written.
// It keeps going after a failed file and returns the joined errors.
func (a *Archiver) Upload(ctx context.Context, sessionID string, files ...string) ([]string, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	var keys []string
	var errs []error
	for _, file := range files {
		if file == "" {
			continue
		}
		key := objectKey(a.config.Prefix, sessionID, file)
		if err := a.uploadFile(ctx, file, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}

func (a *Archiver) uploadFile(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == request.CanceledErrorCode {
			a.logger.Error("S3 upload canceled", "key", key, "error", err)
		} else {
			a.logger.Error("Failed to upload artifact", "key", key, "error", err)
		}
		return err
	}
	a.logger.Info("Uploaded artifact", "key", key, "size", humanize.Bytes(uint64(fi.Size())))
	return nil
}
