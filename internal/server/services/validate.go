package services

import (
	"github.com/dmitrijs2005/heartwall/internal/common"
	"github.com/dmitrijs2005/heartwall/internal/server/models"
)

// Validate checks a submission before anything is written. Text fields are
// normalized in place. Checks run in a fixed order so the first failing
// rule decides the error.
func Validate(sub *models.Submission) error {
	if sub.Cropped == nil {
		return common.ErrMissingArtifact
	}
	if len(sub.Cropped.Data) == 0 {
		return common.ErrEmptyArtifact
	}

	sub.Nickname = common.NormalizeText(sub.Nickname)
	sub.Message = common.NormalizeText(sub.Message)
	if err := common.ValidateText(sub.Nickname, sub.Message); err != nil {
		return err
	}

	if !common.IsImageContentType(sub.Cropped.ContentType) {
		return common.ErrNotImage
	}
	if sub.Full != nil {
		if len(sub.Full.Data) == 0 {
			// An empty optional part is treated as absent.
			sub.Full = nil
		} else if !common.IsImageContentType(sub.Full.ContentType) {
			return common.ErrNotImage
		}
	}
	return nil
}
