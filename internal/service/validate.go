package service

import (
	"errors"
	"strings"

	"github.com/dangerclosesec/huddle/internal/domain"
	"github.com/dangerclosesec/huddle/internal/repository"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var validate = validator.New()

// validateInput checks validate tags and reports failures as ErrBadRequest.
func validateInput(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.BadRequestf("%v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+param+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+param+" characters")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "url":
			msgs = append(msgs, field+" must be a valid URL")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return domain.BadRequestf("%s", strings.Join(msgs, ", "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// page normalizes client paging values.
func page(skip, limit int) (repository.Page, error) {
	if skip < 0 {
		return repository.Page{}, domain.BadRequestf("skip must not be negative")
	}
	if limit < 0 {
		return repository.Page{}, domain.BadRequestf("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return repository.Page{Skip: skip, Limit: limit}, nil
}
