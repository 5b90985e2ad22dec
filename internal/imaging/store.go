package imaging

import (
	"context"
	"errors"
	"fmt"

	"inkpress/internal/apperr"
	"inkpress/internal/storage"
)

// Upload field messages.
const (
	MsgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgNoFile       = "No file was submitted."
)

// Save validates data, stores it in dst under a fresh key below prefix and
// returns its public URL. Invalid uploads are reported on the "image" field.
func Save(ctx context.Context, dst storage.Store, prefix string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Field("image", MsgNoFile)
	}
	img, err := Prepare(data)
	if errors.Is(err, ErrNotImage) {
		return "", apperr.Field("image", MsgInvalidImage)
	}
	if err != nil {
		return "", err
	}
	if dst == nil {
		return "", fmt.Errorf("save image: no media storage configured")
	}
	url, err := dst.Put(ctx, storage.NewKey(prefix, img.Ext), img.ContentType, img.Data)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return url, nil
}
