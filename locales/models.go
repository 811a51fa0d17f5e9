package locales

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Locale is a registry entry for a supported language.
type Locale struct {
	bun.BaseModel `bun:"table:locales,alias:l"`

	ID         uuid.UUID `bun:",pk,type:uuid"         json:"id"`
	Code       string    `bun:"code,notnull"          json:"code"`
	Display    string    `bun:"display_name,notnull"  json:"display_name"`
	NativeName *string   `bun:"native_name"           json:"native_name,omitempty"`
	IsActive   bool      `bun:"is_active,notnull,default:true"   json:"is_active"`
	IsDefault  bool      `bun:"is_default,notnull,default:false" json:"is_default"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Input carries the fields accepted when registering a locale.
type Input struct {
	Code       string
	Display    string
	NativeName *string
	IsDefault  bool
}

// Validate ensures the input carries the required fields before hitting storage.
func (i Input) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(i.Code) == "" {
		errs["code"] = validation.NewError("translatable.locales.code_required", "code is required")
	}
	if strings.TrimSpace(i.Display) == "" {
		errs["display_name"] = validation.NewError("translatable.locales.display_required", "display_name is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
