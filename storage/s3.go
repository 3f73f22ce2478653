package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/registration-ledger/interfaces"
)

// S3Backend implements a document store using one object in Amazon S3 or a
// compatible service. The version token is the object's ETag.
//
// S3 offers no compare-and-swap on PutObject here, so Write checks the ETag with
// HeadObject first. The check and the put are serialized within this process
// only; concurrent writers in other processes can still interleave.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	key         string
	mu          sync.Mutex
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates a new S3 document store.
// If accessKey and secretKey are empty, the default AWS credential chain is used.
func NewS3Backend(bucketName, key, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	key = strings.TrimPrefix(key, "/")
	if bucketName == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 bucket and key are required", interfaces.ErrInvalidLocationURI)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, key, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		key:         key,
		log:         log,
		locationURI: uri,
	}, nil
}

// Read fetches the object. Returns ErrDocumentNotFound if it doesn't exist.
func (b *S3Backend) Read(ctx context.Context) (*interfaces.Document, error) {
	start := time.Now()

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Document not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", b.key))
			return nil, interfaces.ErrDocumentNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", b.key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched document from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Document{Content: data, SHA: aws.StringValue(result.ETag)}, nil
}

// Write verifies the current ETag and uploads the new content.
func (b *S3Backend) Write(ctx context.Context, req interfaces.WriteRequest) (*interfaces.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	head, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.key),
	})
	switch {
	case err != nil && isS3NotFound(err):
		if !req.IsCreate() {
			return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
				[]byte(`{"message":"object does not exist"}`))
		}
	case err != nil:
		return nil, fmt.Errorf("failed to head object in S3: %w", err)
	case req.IsCreate():
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusUnprocessableEntity,
			[]byte(`{"message":"object already exists"}`))
	case aws.StringValue(head.ETag) != req.SHA:
		return nil, interfaces.NewWriteRejectedError(b.Name(), http.StatusConflict,
			[]byte(fmt.Sprintf(`{"message":"object is at %s"}`, strings.Trim(aws.StringValue(head.ETag), `"`))))
	}

	out, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String("application/yaml"),
		Metadata:    map[string]*string{"Message": aws.String(req.Message)},
	})
	if err != nil {
		var reqErr awserr.RequestFailure
		if errors.As(err, &reqErr) {
			details, _ := json.Marshal(map[string]string{
				"code":    reqErr.Code(),
				"message": reqErr.Message(),
			})
			return nil, interfaces.NewWriteRejectedError(b.Name(), reqErr.StatusCode(), details)
		}
		return nil, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored document in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.key),
		slog.String("etag", aws.StringValue(out.ETag)))

	return &interfaces.Document{Content: req.Content, SHA: aws.StringValue(out.ETag)}, nil
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}
