package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"portfolio/internal/metrics"
	"portfolio/internal/security"
)

const (
	msgUploadFailed = "Error al subir el archivo"
	multipartSlack  = 1 << 20
)

// parseUploadForm reads a multipart admin form, capping the body at the
// upload limit plus room for the text fields.
func parseUploadForm(w http.ResponseWriter, r *http.Request, maxUpload int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartSlack)
	err := r.ParseMultipartForm(maxUpload + multipartSlack)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// uploadedFile returns the file posted under field, or nil when none was
// chosen.
func uploadedFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Filename == "" {
		return nil
	}
	return files[0]
}

// storeUpload validates and stores an image. On failure it returns the
// message to show: the rejection reasons, or a generic one for I/O errors.
func storeUpload(images *security.ImageStore, fh *multipart.FileHeader, prefix string) (string, string) {
	path, err := images.Save(fh, prefix)
	if err == nil {
		metrics.Uploads.WithLabelValues("stored").Inc()
		return path, ""
	}

	var uerr *security.UploadError
	if errors.As(err, &uerr) {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		log.Printf("Upload rejected (%s): %v", security.SanitizeFilename(fh.Filename), err)
		return "", uerr.Error()
	}

	metrics.Uploads.WithLabelValues("error").Inc()
	log.Printf("Failed to store upload: %v", err)
	return "", msgUploadFailed
}

// discardImage removes a stored image, logging failures.
func discardImage(images *security.ImageStore, path string) {
	if err := images.Remove(path); err != nil {
		log.Printf("Failed to remove image %s: %v", path, err)
	}
}

// formError maps a failed form parse to a flash message.
func formError(err error, maxUpload int64) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "El archivo es demasiado grande. Máximo " + security.FormatBytes(maxUpload)
	}
	log.Printf("Failed to parse admin form: %v", err)
	return "Solicitud inválida"
}
