package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/uxlens/uxlens-backend/internal/platform/ctxutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// BucketService stores session screenshots and hands out the stable public
// URLs the analyzers are pointed at.
type BucketService interface {
	UploadFile(ctx context.Context, key string, contentType string, file io.Reader) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("SCREENSHOT_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var SCREENSHOT_GCS_BUCKET_NAME")
	}
	cdnDomain := strings.TrimSpace(os.Getenv("SCREENSHOT_CDN_DOMAIN"))

	ctx := context.Background()
	stClient, err := storage.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucketName,
		"cdn_domain", cdnDomain,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		cdnDomain:     strings.TrimRight(cdnDomain, "/"),
	}, nil
}

func (s *bucketService) UploadFile(ctx context.Context, key string, contentType string, file io.Reader) error {
	if key == "" {
		return fmt.Errorf("storage key required")
	}
	ctx = ctxutil.Default(ctx)

	w := s.storageClient.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %q: %w", key, err)
	}
	return nil
}

func (s *bucketService) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, fmt.Errorf("storage key required")
	}
	ctx = ctxutil.Default(ctx)
	r, err := s.storageClient.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return r, nil
}

func (s *bucketService) DeleteFile(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	ctx = ctxutil.Default(ctx)
	if err := s.storageClient.Bucket(s.bucketName).Object(key).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *bucketService) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}
	ctx = ctxutil.Default(ctx)
	it := s.storageClient.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list %q: %w", prefix, err)
		}
		if err := s.DeleteFile(ctx, attrs.Name); err != nil {
			return err
		}
	}
}

func (s *bucketService) GetPublicURL(key string) string {
	escaped := url.PathEscape(key)
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, escaped)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, escaped)
}
