package transport

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rpggio/kinboard/internal/domain/photo"
)

// maxFormMemory is how much of a multipart body is kept in memory before
// spilling file parts to temporary files.
const maxFormMemory = 8 << 20

// parseUpload caps the body at limit bytes and parses it as a multipart or
// urlencoded form.
func parseUpload(w http.ResponseWriter, r *http.Request, limit int64) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	err := r.ParseMultipartForm(min(limit, maxFormMemory))
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// formFiles collects uploads sent under any of the given field names, in
// submission order.
func formFiles(r *http.Request, fields ...string) []photo.File {
	if r.MultipartForm == nil {
		return nil
	}
	var files []photo.File
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			files = append(files, fromHeader(fh))
		}
	}
	return files
}

func fromHeader(fh *multipart.FileHeader) photo.File {
	return photo.File{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// portalURL is the site root as seen by the client.
func portalURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
