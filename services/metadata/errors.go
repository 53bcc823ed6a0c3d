package metadata

import (
	"errors"
	"net/http"

	"reviewverso/internal/apierror"
)

var (
	ErrTMDBKeyMissing         = &apierror.Error{Op: "tmdb", Status: http.StatusServiceUnavailable, Detail: "TMDB API key not configured"}
	ErrIGDBCredentialsMissing = &apierror.Error{Op: "igdb", Status: http.StatusServiceUnavailable, Detail: "IGDB credentials not configured"}
	ErrUnsupportedMediaType   = errors.New("unsupported media type")
	ErrInvalidID              = apierror.Invalid("metadata", "Identificador de contenido inválido")
)
