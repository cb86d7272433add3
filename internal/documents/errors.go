package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("only PDF documents are supported")
	ErrTooLarge        = errors.New("document exceeds size limit")
)
