package httputil

import (
	"errors"
	"io"
	"net/http"

	dErrors "faceguard/pkg/domain-errors"
)

// multipartMemory is how much of a form is buffered in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// Upload is one file part of a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseMultipart bounds the body at maxBytes and parses it as multipart.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeValidation, "upload exceeds size limit")
		}
		return dErrors.New(dErrors.CodeBadRequest, "invalid multipart form")
	}
	return nil
}

// FormFiles reads every file under field. ParseMultipart must run first.
func FormFiles(r *http.Request, field string) ([]Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	out := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload "+field)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload "+field)
		}
		out = append(out, Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}
