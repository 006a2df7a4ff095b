package upload

import (
	"encoding/base64"
	"strings"
)

// Reason explains why a file was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonNotAnImage Reason = "not_an_image"
	ReasonTooLarge   Reason = "too_large"
)

// Message is the text shown to the user for the rejection.
func (r Reason) Message() string {
	switch r {
	case ReasonNotAnImage:
		return "Please select an image file"
	case ReasonTooLarge:
		return "Image must be less than 10MB"
	}
	return ""
}

// Err maps the reason to its sentinel error.
func (r Reason) Err() error {
	switch r {
	case ReasonNotAnImage:
		return ErrNotAnImage
	case ReasonTooLarge:
		return ErrTooLarge
	}
	return nil
}

// Outcome is the result of validating a File. Exactly one of Preview or
// Rejection is set.
type Outcome struct {
	File      *File
	Preview   string
	Rejection Reason
}

// Accepted reports whether the file passed validation.
func (o Outcome) Accepted() bool {
	return o.Rejection == ""
}

// Validate applies the upload policy: the type must be image/* and the size
// must not exceed MaxFileSize. The file is never modified.
func Validate(f *File) Outcome {
	if f == nil || !isImageType(f.ContentType) {
		return Outcome{File: f, Rejection: ReasonNotAnImage}
	}
	if f.Size > MaxFileSize {
		return Outcome{File: f, Rejection: ReasonTooLarge}
	}
	return Outcome{File: f, Preview: PreviewDataURI(f)}
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// PreviewDataURI renders the file as a base64 data URI.
func PreviewDataURI(f *File) string {
	mediaType := f.ContentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(f.data)
}
