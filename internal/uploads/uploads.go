// Package uploads stores admin media (images and PDFs) on disk or in MinIO.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("upload exceeds size limit")
	ErrEmpty           = errors.New("upload is empty")
	ErrUnsupportedType = errors.New("unsupported upload type")
	ErrInvalidKey      = errors.New("invalid upload key")
	ErrNotFound        = errors.New("upload not found")
)

var allowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/avif",
	"application/pdf",
}

var keyPattern = regexp.MustCompile(`^\d{4}/\d{2}/[0-9a-f-]{36}\.[a-z0-9]+$`)

// Storage is a backend able to hold uploaded objects under a key.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Filename    string `json:"filename,omitempty"`
}

type Service struct {
	storage  Storage
	maxBytes int64
	now      func() time.Time
}

func NewService(storage Storage, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{storage: storage, maxBytes: maxBytes, now: time.Now}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload sniffs the body, rejects disallowed or oversized files and stores it
// under a date-prefixed random key.
func (s *Service) Upload(ctx context.Context, filename string, body io.Reader) (Object, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Object{}, ErrTooLarge
	}
	if len(data) == 0 {
		return Object{}, ErrEmpty
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedTypes...) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}
	contentType := strings.SplitN(detected.String(), ";", 2)[0]

	now := s.now().UTC()
	key := fmt.Sprintf("%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), detected.Extension())
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Object{}, fmt.Errorf("store upload: %w", err)
	}
	return Object{
		Key:         key,
		URL:         s.storage.URL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
		Filename:    filename,
	}, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	return s.storage.Delete(ctx, key)
}

// ValidKey reports whether key has the shape Upload produces.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
