package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/ppm/api/internal/models"
)

// RegisterValidators adds the identifier tags (idu, siren, departement) to
// v and reports fields by their JSON or form name.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	validators := map[string]validator.Func{
		"idu": func(fl validator.FieldLevel) bool {
			_, err := models.ParseIduString(fl.Field().String())
			return err == nil
		},
		"siren": func(fl validator.FieldLevel) bool {
			_, err := models.ParseSiren(fl.Field().String())
			return err == nil
		},
		"departement": func(fl validator.FieldLevel) bool {
			_, err := models.ParseDepartmentCode(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
