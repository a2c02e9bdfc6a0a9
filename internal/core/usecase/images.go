package usecase

import (
	"context"
	"fmt"
	"io"
	"path"
	"rental-system/internal/core/domain"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxImageBytes is the per-file upload ceiling when none is configured.
const DefaultMaxImageBytes int64 = 5 << 20

const imagePathPrefix = "property-images"

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// imageExtension maps an upload to the extension its object is stored under.
func imageExtension(img domain.ImageFile) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(img.ContentType, ";", 2)[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %q", domain.ErrValidation, img.ContentType)
	}
	return ext, nil
}

func (c *ListingClient) checkImage(img domain.ImageFile) error {
	if _, err := imageExtension(img); err != nil {
		return err
	}
	if img.Body == nil || img.Size <= 0 {
		return fmt.Errorf("%w: image %q is empty", domain.ErrValidation, img.Name)
	}
	if img.Size > c.cfg.MaxImageBytes {
		return fmt.Errorf("%w: image %q is %d bytes, limit is %d", domain.ErrValidation, img.Name, img.Size, c.cfg.MaxImageBytes)
	}
	return nil
}

// uploadImage stores one image under property-images/<landlord>/<unixnano>_<uuid>.<ext>
// and returns its public URL.
func (c *ListingClient) uploadImage(ctx context.Context, landlordID string, img domain.ImageFile) (string, error) {
	if err := c.checkImage(img); err != nil {
		return "", err
	}
	ext, _ := imageExtension(img)

	objectPath := path.Join(imagePathPrefix, landlordID,
		fmt.Sprintf("%d_%s.%s", c.now().UnixNano(), uuid.NewString(), ext))

	// Guard against a body longer than its declared size.
	body := io.LimitReader(img.Body, img.Size)

	url, err := c.storage.Upload(ctx, objectPath, body, img.Size, img.ContentType)
	if err != nil {
		return "", domain.Transport(fmt.Errorf("failed to upload image %q: %w", img.Name, err))
	}
	return url, nil
}

// ownsObject reports whether objectPath lies under landlordID's upload prefix.
func ownsObject(landlordID, objectPath string) bool {
	if landlordID == "" {
		return false
	}
	return strings.HasPrefix(path.Clean(objectPath), imagePathPrefix+"/"+landlordID+"/")
}

// checkPatchImages rejects bucket URLs that were uploaded by someone other
// than landlordID. Placeholder and external URLs pass through.
func (c *ListingClient) checkPatchImages(landlordID string, images []string) error {
	var errs domain.ValidationErrors
	for i, url := range images {
		objectPath, ours := c.storage.ObjectPath(url)
		if ours && !ownsObject(landlordID, objectPath) {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("images[%d]", i),
				Message: "must be an image uploaded by the listing owner",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
