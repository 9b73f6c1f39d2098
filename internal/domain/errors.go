package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoData            = errors.New("no data available")
	ErrEmptyDataset      = errors.New("dataset is empty")
	ErrMissingColumn     = errors.New("missing required column")
	ErrBrandKeyCollision = errors.New("brand key collision")
	ErrInvalidQuery      = errors.New("invalid query")
)
