package validation

import (
	"fmt"
	"unicode/utf8"
)

// MinPasswordLength — минимальная длина пароля, как в форме регистрации.
const MinPasswordLength = 6

// ValidatePassword проверяет длину пароля.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("пароль не может быть длиннее 72 байт")
	}
	return nil
}

// ValidatePasswordConfirmation проверяет совпадение пароля и подтверждения.
func ValidatePasswordConfirmation(password, confirmation string) error {
	if password != confirmation {
		return fmt.Errorf("пароли не совпадают")
	}
	return nil
}
