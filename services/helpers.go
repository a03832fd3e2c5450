package services

import (
	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/storage"
)

// hydratePhotoURL превращает ключ объекта в публичный URL.
func hydratePhotoURL(user *models.User, uploader storage.FileUploader) {
	if user.PhotoKey != nil && *user.PhotoKey != "" {
		url := uploader.GetPublicURL(*user.PhotoKey)
		user.PhotoURL = &url
	}
}

// participantRecord снимает денормализованную копию пользователя
// с уже разрешённым URL фотографии.
func participantRecord(user *models.User, uploader storage.FileUploader) models.ParticipantRecord {
	hydratePhotoURL(user, uploader)
	return models.NewParticipantRecord(user)
}
