package samples

import "errors"

var (
	ErrNotFound        = errors.New("sample not found")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image exceeds size limit")
	ErrInvalidImage    = errors.New("image could not be decoded")
)
