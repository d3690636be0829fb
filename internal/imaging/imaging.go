package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"sdfrontend/internal/core"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned for a zero-length upload.
	ErrEmptyImage = errors.New("image is empty")
	// ErrImageTooLarge is returned when an image exceeds core.MaxImageSizeBytes.
	ErrImageTooLarge = errors.New("image too large")
	// ErrUnsupportedFormat is returned when no registered decoder recognizes the data.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var formatMIME = map[string]string{
	"png":  core.ImageFormatPNG,
	"jpeg": core.ImageFormatJPEG,
	"gif":  core.ImageFormatGIF,
	"webp": core.ImageFormatWebP,
	"bmp":  core.ImageFormatBMP,
}

// StripEnvelope removes data URI prefixes such as "data:image/png;base64,".
// A prefixed value without a comma is returned unchanged.
func StripEnvelope(value string) string {
	for strings.HasPrefix(value, core.DataURIImagePrefix) {
		idx := strings.IndexByte(value, ',')
		if idx < 0 {
			return value
		}
		value = value[idx+1:]
	}
	return value
}

// NormalizeToCanonical re-encodes a base64 image as base64 PNG.
// On any failure the input is returned as is.
func NormalizeToCanonical(b64 string) string {
	out, err := Canonicalize(b64)
	if err != nil {
		return b64
	}
	return out
}

// Canonicalize is NormalizeToCanonical with the failure reported.
func Canonicalize(b64 string) (string, error) {
	if int64(len(b64))*3/4 > core.MaxImageSizeBytes {
		return "", fmt.Errorf("%w: estimated %d bytes exceeds %d limit", ErrImageTooLarge, int64(len(b64))*3/4, core.MaxImageSizeBytes)
	}
	raw, err := decodeBase64(b64)
	if err != nil {
		return "", fmt.Errorf("invalid base64 data: %w", err)
	}
	return EncodeUpload(raw)
}

// EncodeUpload decodes raw image bytes in any supported format and returns
// them as base64 PNG.
func EncodeUpload(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyImage
	}
	if int64(len(raw)) > core.MaxImageSizeBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d limit", ErrImageTooLarge, len(raw), core.MaxImageSizeBytes)
	}
	if !IsSupportedFormat(DetectMIME(raw)) {
		return "", ErrUnsupportedFormat
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", ErrUnsupportedFormat
		}
		return "", fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DetectMIME returns the MIME type of raw image bytes, or "" if no
// registered decoder recognizes them.
func DetectMIME(raw []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return formatMIME[format]
}

// IsSupportedFormat reports whether mediaType is one of core.SupportedImageFormats.
func IsSupportedFormat(mediaType string) bool {
	for _, format := range core.SupportedImageFormats {
		if strings.EqualFold(format, mediaType) {
			return true
		}
	}
	return false
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	// some upstreams drop the padding
	if rawNoPad, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return rawNoPad, nil
	}
	return nil, err
}
