package transport

import (
	"errors"
	"io"
	"log"

	"photomark/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound),
		errors.Is(err, model.ErrTemplateNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectVariant),
		errors.Is(err, model.ErrIncorrectAnchor),
		errors.Is(err, model.ErrEmptyText),
		errors.Is(err, model.ErrEmptyMarkImage),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyBatch),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnsupportedType):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
