package service

import (
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/validator"
)

// invalid converts a validator failure into a 400 carrying field -> message details.
func invalid(v *validator.Validator, err error, message string) error {
	return appErrors.WithDetails(appErrors.Validation(err, message), v.Translate(err))
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
