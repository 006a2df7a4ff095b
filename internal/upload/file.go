package upload

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFileSize is the largest image accepted for analysis.
const MaxFileSize = 10 * 1024 * 1024

// File is a user selected image awaiting validation and submission.
// Drag and drop, the file picker and the command line all produce one.
type File struct {
	Name        string
	ContentType string
	Size        int64
	data        []byte
}

// NewFile wraps in-memory bytes. An empty contentType is sniffed from data.
func NewFile(name, contentType string, data []byte) *File {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		data:        data,
	}
}

// FromPart reads a file part while it streams in. A declared non-image type
// is rejected by Validate anyway, so its body is not read. At most
// MaxFileSize+1 bytes are consumed; a longer body is recorded as oversized
// and dropped.
func FromPart(part *multipart.Part) (*File, error) {
	name := filepath.Base(part.FileName())
	contentType := strings.TrimSpace(part.Header.Get("Content-Type"))
	if contentType != "" && !isImageType(contentType) {
		return &File{Name: name, ContentType: contentType}, nil
	}

	data, err := io.ReadAll(io.LimitReader(part, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	f := &File{Name: name, ContentType: contentType, Size: int64(len(data))}
	if f.Size <= MaxFileSize {
		f.data = data
	}
	return f, nil
}

// FromPath reads an image from disk. The declared type comes from the file
// extension, the way a browser file picker reports it.
func FromPath(path string) (*File, error) {
	src, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return fromReader(filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), info.Size(), src)
}

// fromReader skips reading the body of files that are already known to be
// over the limit; they only need a content type to be rejected.
func fromReader(name, contentType string, size int64, r io.Reader) (*File, error) {
	f := &File{
		Name:        name,
		ContentType: strings.TrimSpace(contentType),
		Size:        size,
	}

	if size > MaxFileSize {
		if f.ContentType == "" {
			m, err := mimetype.DetectReader(r)
			if err != nil {
				return nil, fmt.Errorf("detect content type: %w", err)
			}
			f.ContentType = m.String()
		}
		return f, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	f.data = data
	f.Size = int64(len(data))
	if f.ContentType == "" {
		f.ContentType = mimetype.Detect(data).String()
	}
	return f, nil
}

// Bytes returns the raw image. Callers must not modify the slice.
func (f *File) Bytes() []byte {
	return f.data
}

// SizeLabel formats the size in megabytes with two decimals.
func (f *File) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(f.Size)/1024/1024)
}
