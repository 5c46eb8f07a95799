package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted image upload
const MaxImageSize = 10 * 1024 * 1024 // 10MB

var (
	ErrTooLarge     = errors.New("file exceeds the 10MB limit")
	ErrNotImage     = errors.New("file is not an image")
	ErrEmptyFile    = errors.New("file is empty")
	ErrNotSupported = errors.New("no blob store configured")
)

// Store persists uploaded files and returns the public URL for each
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// ObjectKey returns a fresh key under listings/ that keeps the original
// file extension
func ObjectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return "listings/" + uuid.NewString() + ext
}

// CheckImage validates one multipart file as an image of at most
// MaxImageSize bytes without storing it
func CheckImage(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return fmt.Errorf("%s: %w", fh.Filename, ErrTooLarge)
	}
	if fh.Size == 0 {
		return fmt.Errorf("%s: %w", fh.Filename, ErrEmptyFile)
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return err
	}
	_, err = sniffImage(fh.Filename, head)
	return err
}

// UploadImage validates one multipart file as an image of at most
// MaxImageSize bytes and stores it
func UploadImage(ctx context.Context, store Store, fh *multipart.FileHeader) (string, error) {
	if err := CheckImage(fh); err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return PutImage(ctx, store, fh.Filename, f)
}

// PutImage sniffs the content type of r, rejects anything that is not an
// image or is larger than MaxImageSize, and stores it under a new key
func PutImage(ctx context.Context, store Store, filename string, r io.Reader) (string, error) {
	head, err := readHead(r)
	if err != nil {
		return "", err
	}
	contentType, err := sniffImage(filename, head)
	if err != nil {
		return "", err
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), r), remaining: MaxImageSize}
	url, err := store.Put(ctx, ObjectKey(filename), contentType, body)
	if err != nil {
		if body.exceeded {
			return "", fmt.Errorf("%s: %w", filename, ErrTooLarge)
		}
		return "", err
	}
	return url, nil
}

// readHead reads up to the 512 bytes content sniffing looks at
func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return head[:n], nil
}

func sniffImage(filename string, head []byte) (string, error) {
	if len(head) == 0 {
		return "", fmt.Errorf("%s: %w", filename, ErrEmptyFile)
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s (%s): %w", filename, contentType, ErrNotImage)
	}
	return contentType, nil
}

// limitedReader fails once more than remaining bytes have been read
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}
