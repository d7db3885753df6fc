package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const csvContentType = "text/csv; charset=utf-8"

// ErrArchiveDisabled is returned when no bucket is configured
var ErrArchiveDisabled = errors.New("report archive is not configured")

// Archive stores rendered exports and returns their location
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ArchivedReport struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// ObjectKey builds reports/{kind}/{yyyy}/{mm}/{uuid}.csv
func ObjectKey(kind string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("reports/%s/%s/%s/%s.csv", kind, at.Format("2006"), at.Format("01"), uuid.New().String())
}

// ArchiveExport renders the export of the given kind and uploads it
func (g *Generator) ArchiveExport(ctx context.Context, p access.Principal, kind string, projectID *uuid.UUID) (*ArchivedReport, error) {
	if g.archive == nil {
		return nil, ErrArchiveDisabled
	}

	var body []byte
	var err error
	switch kind {
	case KindProjects:
		body, err = g.ExportProjects(ctx, p)
	case KindTeam:
		body, err = g.ExportTeamPerformance(ctx, p)
	case KindProjectTasks:
		if projectID == nil {
			return nil, &UnknownKindError{Kind: kind, Reason: "project_id is required"}
		}
		body, err = g.ExportProjectTasks(ctx, p, *projectID)
	default:
		return nil, &UnknownKindError{Kind: kind, Reason: "unknown export kind"}
	}
	if err != nil {
		return nil, err
	}

	key := ObjectKey(kind, g.now())
	url, err := g.archive.Put(ctx, key, body, csvContentType)
	if err != nil {
		return nil, err
	}
	return &ArchivedReport{Kind: kind, Key: key, URL: url, Size: len(body)}, nil
}

type UnknownKindError struct {
	Kind   string
	Reason string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// S3Archive uploads exports to an S3 compatible bucket
type S3Archive struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

func NewS3Archive(ctx context.Context, cfg config.S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// MinIO and other compatible stores need path style addressing
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: cfg.Bucket, region: cfg.Region, endpoint: cfg.Endpoint}, nil
}

func (a *S3Archive) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to S3: %w", err)
	}
	return a.URL(key), nil
}

func (a *S3Archive) URL(key string) string {
	if a.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(a.endpoint, "/"), a.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, key)
}
