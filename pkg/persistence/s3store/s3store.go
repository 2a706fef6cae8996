// Package s3store is a second persistence collaborator for pkg/audit.Log,
// alongside pkg/persistence/sqlstore: it archives a whole log as one JSON
// blob object in S3-compatible object storage, for deployments that want
// durable off-box backup rather than a queryable SQL table.
//
// Grounded on the reference platform's pkg/artifacts/s3_store.go
// (aws-sdk-go-v2 client construction with an optional custom endpoint for
// MinIO/LocalStack, content-addressed PutObject/GetObject/HeadObject),
// narrowed from its generic content-addressed blob store down to archiving
// one named object per jurisdiction rather than one object per distinct
// content hash — a log is mutable (append-only) and always overwrites its
// own key, unlike the teacher's immutable artifact blobs.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/driftlock/kernel/pkg/audit"
	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/state"
)

// Store archives audit.Log snapshots as objects in one S3 bucket, one
// object per jurisdiction key.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config configures a Store's underlying S3 client.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint, e.g. for MinIO or LocalStack
	Prefix   string // optional key prefix
}

// New loads the default AWS credential chain and constructs a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) key(jurisdictionID string) string {
	return s.prefix + jurisdictionID + "/log.json"
}

// Archive overwrites the jurisdiction's object with the canonical JSON
// encoding of log's full entry slice. Unlike sqlstore.ArchiveLog, this is
// not an incremental append — S3 has no partial-object update, so each
// call re-uploads the whole log.
func Archive[A state.Action](ctx context.Context, s *Store, jurisdictionID string, log *audit.Log[A]) error {
	payload, err := canonicalize.Marshal(log.Entries())
	if err != nil {
		return fmt.Errorf("s3store: marshal log: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(jurisdictionID)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3store: put object: %w", err)
	}
	return nil
}

// Reload fetches the jurisdiction's archived object and reconstructs a
// fresh audit.Log from it by appending each decoded Event directly,
// bypassing chain validation (the archived log was valid when archived;
// call Verify on the result to re-check).
func Reload[A state.Action](ctx context.Context, s *Store, jurisdictionID string) (*audit.Log[A], error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(jurisdictionID)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: get object: %w", err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read object body: %w", err)
	}

	raw, err := canonicalize.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("s3store: unmarshal log: %w", err)
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("s3store: archived object is not a JSON array")
	}

	log := audit.New[A]()
	for i, entry := range entries {
		data, err := canonicalize.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("s3store: re-marshal entry %d: %w", i, err)
		}
		event, err := audit.DecodeEvent[A](data)
		if err != nil {
			return nil, fmt.Errorf("s3store: decode entry %d: %w", i, err)
		}
		if err := log.Append(event); err != nil {
			return nil, fmt.Errorf("s3store: replay append entry %d: %w", i, err)
		}
	}
	return log, nil
}

// Exists reports whether an archived log object exists for jurisdictionID.
func (s *Store) Exists(ctx context.Context, jurisdictionID string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(jurisdictionID)),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}
