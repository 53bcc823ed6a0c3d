package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reviewverso/api"
	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
)

const (
	maxJSONBody = 1 << 20
	// Avatar plus the text fields of a profile form.
	maxMultipartBody = backend.MaxAvatarBytes + 1<<20
)

var (
	ErrMalformedBody = apierror.Invalid("request", "El cuerpo de la solicitud no es válido")
	ErrInvalidPathID = apierror.Invalid("request", "Identificador inválido")
)

// pathID parses a positive numeric mux variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(mux.Vars(r)[name])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPathID, name, raw)
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// parseForm parses a multipart profile form and returns the optional avatar.
func parseForm(w http.ResponseWriter, r *http.Request) (*backend.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierror.Invalid("request", "La imagen no puede superar los 5 MB")
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	file, header, err := r.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	defer file.Close()
	return readUpload(file, header)
}

func readUpload(file multipart.File, header *multipart.FileHeader) (*backend.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, backend.MaxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return &backend.Upload{Name: header.Filename, Data: data}, nil
}

// formValue returns a pointer to the field, or nil if the form lacks it.
func formValue(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// canActAs reports whether the caller may modify resources of userID.
func canActAs(r *http.Request, userID int64) bool {
	return api.IsAdmin(r) || (userID > 0 && api.GetUserID(r) == userID)
}
