package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/storage"
)

// multipartMemory is how much of a form is buffered in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

// formSlack covers multipart boundaries, part headers and text fields on top
// of the file bytes themselves.
const formSlack = 1 << 20

// maxBoardImages caps how many images one upload request may carry.
const maxBoardImages = 10

// limitBody caps the request body at files uploads of maxFile bytes each.
// A non-positive maxFile disables the cap.
func limitBody(maxFile int64, files int, next http.Handler) http.Handler {
	if maxFile <= 0 {
		return next
	}
	limit := maxFile*int64(files) + formSlack
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(w, r, domain.ErrFileTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
		return false
	}
	return true
}

// formFile returns the named upload, or nil when the field is absent.
// The caller closes the returned file's body via closeFiles.
func formFile(r *http.Request, field string) (*storage.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toFile(f, header), nil
}

func formFiles(r *http.Request, field string) ([]storage.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []storage.File
	for _, header := range r.MultipartForm.File[field] {
		f, err := header.Open()
		if err != nil {
			closeFiles(files...)
			return nil, err
		}
		files = append(files, *toFile(f, header))
	}
	return files, nil
}

func toFile(f multipart.File, header *multipart.FileHeader) *storage.File {
	return &storage.File{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}
}

func closeFiles(files ...storage.File) {
	for _, f := range files {
		if c, ok := f.Body.(multipart.File); ok {
			_ = c.Close()
		}
	}
}

// formValue returns nil when the field was not sent at all.
func formValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
