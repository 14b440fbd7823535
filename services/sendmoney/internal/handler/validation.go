package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"example.com/send-money/services/sendmoney/internal/domain"
)

// RegisterValidators регистрирует проверку `prisoner_number` в валидаторе gin.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("prisoner_number", validPrisonerNumber)
}

func validPrisonerNumber(fl validator.FieldLevel) bool {
	_, err := domain.NormalizePrisonerNumber(fl.Field().String())
	return err == nil
}
