package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// ProfilePhotoKey — один объект на пользователя, перезаписывается на месте.
func ProfilePhotoKey(userID int) string {
	return fmt.Sprintf("users/%d/profile.jpg", userID)
}

// AttachmentKey — ключ для вложений чатов и постов: append-only,
// отметка времени в имени исключает перезапись.
func AttachmentKey(scope string, id int, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%d_%s", scope, id, now.UnixMilli(), filename)
}
