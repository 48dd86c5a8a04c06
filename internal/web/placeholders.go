package web

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"portfolio/internal/models"
)

var placeholders = []struct {
	path  string
	w, h  int
	color color.RGBA
}{
	{models.DefaultProjectImage, 640, 400, color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}},
	{models.DefaultProfilePhoto, 300, 300, color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}},
}

// EnsurePlaceholders writes the default project and profile images under
// publicDir when they are missing. Existing files are left untouched.
func EnsurePlaceholders(publicDir string) error {
	for _, p := range placeholders {
		dst := filepath.Join(publicDir, filepath.FromSlash(p.path))
		if _, err := os.Stat(dst); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("create images directory: %w", err)
		}

		img := image.NewRGBA(image.Rect(0, 0, p.w, p.h))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: p.color}, image.Point{}, draw.Src)

		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("create placeholder: %w", err)
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 80}); err != nil {
			f.Close()
			return fmt.Errorf("encode placeholder: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
