// Package imaging re-encodes picked images into the upload format.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // decoder registration
	"image/jpeg"
	_ "image/png" // decoder registration

	"threads/config"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/util"
)

const (
	contentTypeJPEG = "image/jpeg"
	extensionJPEG   = "jpg"
)

type jpegEncoder struct {
	quality   int
	maxBytes  int
	maxPixels int
}

// NewJPEGEncoder returns an encoder producing JPEG at storage.jpegQuality.
func NewJPEGEncoder(cfg *config.Config) service.ImageEncoder {
	return &jpegEncoder{
		quality:   cfg.Storage.JPEGQuality,
		maxBytes:  cfg.Storage.MaxImageBytes,
		maxPixels: cfg.Storage.MaxImagePixels,
	}
}

// Encode decodes any registered format and re-encodes it as JPEG.
func (e *jpegEncoder) Encode(raw []byte) (*service.EncodedImage, error) {
	if len(raw) == 0 {
		return nil, domainerrors.ErrImageInvalid.WithDetails("empty image")
	}
	if e.maxBytes > 0 && len(raw) > e.maxBytes {
		return nil, domainerrors.ErrImageInvalid.WithDetails(
			"image is " + util.FormatBytes(int64(len(raw))) + ", limit is " + util.FormatBytes(int64(e.maxBytes)))
	}

	// The header is enough to size the pixel buffer, so check it before decoding.
	header, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrImageInvalid.WithDetails(err.Error()))
	}
	if e.maxPixels > 0 && int64(header.Width)*int64(header.Height) > int64(e.maxPixels) {
		return nil, domainerrors.ErrImageInvalid.WithDetails(
			fmt.Sprintf("image is %dx%d pixels, limit is %d pixels", header.Width, header.Height, e.maxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WithStack(domainerrors.ErrImageInvalid.WithDetails(err.Error()))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}

	return &service.EncodedImage{
		Data:        buf.Bytes(),
		ContentType: contentTypeJPEG,
		Extension:   extensionJPEG,
	}, nil
}
