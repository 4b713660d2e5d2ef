package mysql

import (
	"errors"

	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to the domain sentinel.
func notFound(err, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}
