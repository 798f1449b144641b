package app

import (
	"context"
	"io"

	"portfolio/api/internal/uploads"
)

func uploadsUnavailable() *DomainError {
	return unavailable("UPLOADS_UNAVAILABLE", "File uploads are not configured")
}

func (s *Service) Upload(ctx context.Context, filename string, body io.Reader) Result[uploads.Object] {
	if s.uploads == nil {
		return fail[uploads.Object](uploadsUnavailable())
	}
	object, err := s.uploads.Upload(ctx, filename, body)
	if err != nil {
		return fail[uploads.Object](err)
	}
	return ok(object)
}

func (s *Service) DeleteUpload(ctx context.Context, key string) Result[deletedRef] {
	if s.uploads == nil {
		return fail[deletedRef](uploadsUnavailable())
	}
	if err := s.uploads.Delete(ctx, key); err != nil {
		return fail[deletedRef](err)
	}
	return ok(deletedRef{ID: key})
}

// UploadLimit is the largest accepted file in bytes, or 0 when uploads are off.
func (s *Service) UploadLimit() int64 {
	if s.uploads == nil {
		return 0
	}
	return s.uploads.MaxBytes()
}
