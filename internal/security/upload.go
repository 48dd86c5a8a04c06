package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"portfolio/internal/models"
)

const (
	ImagesDir = "assets/images"

	scanBytes  = 1024
	sniffBytes = 3072
)

var ErrUploadRejected = errors.New("upload rejected")

// UploadError lists every reason an upload failed validation.
type UploadError struct {
	Reasons []string
}

func (e *UploadError) Error() string {
	return strings.Join(e.Reasons, ", ")
}

func (e *UploadError) Unwrap() error {
	return ErrUploadRejected
}

type UploadPolicy struct {
	MaxBytes    int64
	AllowedMIME []string
	AllowedExt  []string
}

func ImagePolicy(maxBytes int64) UploadPolicy {
	return UploadPolicy{
		MaxBytes:    maxBytes,
		AllowedMIME: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		AllowedExt:  []string{"jpg", "jpeg", "png", "gif", "webp"},
	}
}

var maliciousMarkers = [][]byte{[]byte("<?php"), []byte("<?=")}

// Validate checks an uploaded file before anything is written. It returns the
// lower-cased extension on success and an *UploadError otherwise.
func (p UploadPolicy) Validate(header *multipart.FileHeader, file io.ReadSeeker) (string, error) {
	var reasons []string
	typeRejected := false

	if !contains(p.AllowedMIME, baseMIME(header.Header.Get("Content-Type"))) {
		reasons = append(reasons, "Tipo de archivo no permitido. Solo JPG, PNG, GIF y WebP")
		typeRejected = true
	}

	if header.Size > p.MaxBytes {
		reasons = append(reasons, "El archivo es demasiado grande. Máximo "+FormatBytes(p.MaxBytes))
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if !contains(p.AllowedExt, ext) {
		reasons = append(reasons, "Extensión de archivo no permitida")
	}

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	if !typeRejected && !p.sniffAllowed(head) {
		reasons = append(reasons, "El archivo no es una imagen válida")
	}

	if containsMaliciousContent(head) {
		reasons = append(reasons, "El archivo contiene contenido malicioso")
	}

	if len(reasons) > 0 {
		return "", &UploadError{Reasons: reasons}
	}
	return ext, nil
}

func (p UploadPolicy) sniffAllowed(head []byte) bool {
	detected := mimetype.Detect(head)
	for _, allowed := range p.AllowedMIME {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

// containsMaliciousContent scans the first kilobyte for embedded code markers.
func containsMaliciousContent(head []byte) bool {
	if len(head) > scanBytes {
		head = head[:scanBytes]
	}
	for _, marker := range maliciousMarkers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<script"))
}

// ImageStore keeps uploaded images under Root/assets/images and hands out
// paths relative to Root, which is also the public web root.
type ImageStore struct {
	Root   string
	Policy UploadPolicy
}

func NewImageStore(root string, policy UploadPolicy) *ImageStore {
	return &ImageStore{Root: root, Policy: policy}
}

// Save validates and stores the upload as <prefix>_<uuid>.<ext>.
func (s *ImageStore) Save(header *multipart.FileHeader, prefix string) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	ext, err := s.Policy.Validate(header, file)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.Root, filepath.FromSlash(ImagesDir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	filename := SanitizeFilename(prefix + "_" + uuid.NewString() + "." + ext)
	dst, err := os.OpenFile(filepath.Join(dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, io.LimitReader(file, s.Policy.MaxBytes+1)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return path.Join(ImagesDir, filename), nil
}

// Remove deletes a stored image. Default placeholders, empty paths and paths
// outside the images directory are left alone.
func (s *ImageStore) Remove(rel string) error {
	if rel == "" || rel == models.DefaultProjectImage || rel == models.DefaultProfilePhoto {
		return nil
	}

	clean := path.Clean(rel)
	if !strings.HasPrefix(clean, ImagesDir+"/") {
		return fmt.Errorf("refusing to remove %q outside %s", rel, ImagesDir)
	}

	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename drops directories and any character outside [a-zA-Z0-9._-].
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

func baseMIME(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// FormatBytes renders n with a binary unit, e.g. 5MB.
func FormatBytes(n int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	f := float64(n)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", f), "0"), ".0") + units[i]
}
