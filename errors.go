package translatable

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrDatabaseRequired       = errors.New("translatable: config requires a bun database")
	ErrLocaleKeyRequired      = errors.New("translatable: locale key name is required")
	ErrDefaultLocaleRequired  = errors.New("translatable: default locale is required")
	ErrLocaleRequired         = errors.New("translatable: locale is required")
	ErrNotPersisted           = errors.New("translatable: entity has not been persisted")
	ErrPrimaryKeyRequired     = errors.New("translatable: entity primary key is required")
	ErrSavingServiceDisabled  = errors.New("translatable: saving service is disabled")
	ErrUnknownAttribute       = errors.New("translatable: attribute is not declared translatable")
	ErrLoggingProviderUnknown = errors.New("translatable: unknown logging provider")
)

const configurationErrorCode = "TRANSLATABLE_CONFIG_INVALID"

// wrapConfigurationError marks metadata failures as validation errors. They
// are raised eagerly on first use of the entity type and are not recoverable.
func wrapConfigurationError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation,
		fmt.Sprintf("translatable configuration invalid for %s", entity)).
		WithTextCode(configurationErrorCode)
}

// UnknownAttributeError reports an attribute outside the declared translatable set.
type UnknownAttributeError struct {
	Entity    string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("%s: %s.%s", ErrUnknownAttribute.Error(), e.Entity, e.Attribute)
}

func (e *UnknownAttributeError) Unwrap() error {
	return ErrUnknownAttribute
}
