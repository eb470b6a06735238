package errors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrValidation           = errors.New("validation failed")
	ErrFormat               = errors.New("malformed ticket")
	ErrStoreUnavailable     = errors.New("vector store unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
	ErrAnswerSynthesis      = errors.New("answer synthesis failed")
	ErrInternal             = errors.New("internal")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func IsEmbeddingUnavailable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable)
}
