package repositories

import "errors"

var (
	ErrDuplicate    = errors.New("duplicate record")
	ErrQuotaReached = errors.New("quota reached")
)
