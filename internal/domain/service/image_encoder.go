package service

// EncodedImage is an image ready for upload.
type EncodedImage struct {
	Data        []byte
	ContentType string
	Extension   string // Without the leading dot, e.g. "jpg".
}

// ImageEncoder turns raw picked image bytes into the upload format.
type ImageEncoder interface {
	Encode(raw []byte) (*EncodedImage, error)
}
