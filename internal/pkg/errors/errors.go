package errors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalid             = errors.New("invalid")
	ErrTooLarge            = errors.New("file too large")
	ErrDecode              = errors.New("image decode failed")
	ErrEnhance             = errors.New("image enhancement failed")
	ErrExtraction          = errors.New("extraction failed")
	ErrAllPhotosFailed     = errors.New("all photos failed")
	ErrAssembly            = errors.New("document assembly failed")
	ErrCompile             = errors.New("latex compilation failed")
	ErrSymbolicParse       = errors.New("not a parseable math expression")
	ErrFallbackUnavailable = errors.New("fallback model unavailable")
	ErrTooMany             = errors.New("too many requests")
	ErrInternal            = errors.New("internal")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
