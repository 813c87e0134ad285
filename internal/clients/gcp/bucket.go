package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

// ObjectStore is the JSON object-store surface used by all four pipelines.
// Keys follow the documented layout (transcripts/raw/..., moments/..., etc).
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, val any, metadata map[string]string) (string, error)
	GetJSON(ctx context.Context, key string, out any) error
	Exists(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	URI(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
}

func NewBucketService(log *logger.Logger) (ObjectStore, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("TRANSCRIPT_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var TRANSCRIPT_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
	}, nil
}

func (bs *bucketService) PutJSON(ctx context.Context, key string, val any, metadata map[string]string) (string, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return "", apperrors.Internal("encode object", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if len(metadata) > 0 {
		w.Metadata = metadata
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return "", apperrors.Store(fmt.Sprintf("write %s", key), err)
	}
	if err := w.Close(); err != nil {
		return "", apperrors.Store(fmt.Sprintf("close writer for %s", key), err)
	}
	return bs.URI(key), nil
}

func (bs *bucketService) GetJSON(ctx context.Context, key string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := bs.storageClient.Bucket(bs.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return apperrors.NotFound(key)
		}
		return apperrors.Store(fmt.Sprintf("open reader for %s", key), err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return apperrors.Store(fmt.Sprintf("read %s", key), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Store(fmt.Sprintf("decode %s", key), err)
	}
	return nil
}

func (bs *bucketService) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := bs.storageClient.Bucket(bs.bucketName).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, apperrors.Store(fmt.Sprintf("stat %s", key), err)
	}
	return true, nil
}

func (bs *bucketService) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := bs.storageClient.Bucket(bs.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Store(fmt.Sprintf("list %s", prefix), err)
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (bs *bucketService) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", bs.bucketName, key)
}
