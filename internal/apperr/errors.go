package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate document id")
	ErrEmptyCorpus = errors.New("empty corpus")
	ErrInvalidDoc  = errors.New("invalid document")
	ErrGateFailed  = errors.New("health gate failed")
)
