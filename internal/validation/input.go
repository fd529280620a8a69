package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinFullNameLength    = 2
	MaxFullNameLength    = 100
	MaxJobTypeLength     = 120
	MaxLocationLength    = 100
	MaxKeywordLength     = 50
	MaxKeywordsCount     = 30
	MaxCoverLetterLength = 5000
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	fullNameRegex    = regexp.MustCompile(`^[\p{L}\p{M}0-9\s\-'.]+$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateFullName проверяет полное имя (буквы любых алфавитов, дефис, апостроф).
func ValidateFullName(fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return fmt.Errorf("полное имя обязательно")
	}

	if err := ValidateLength("полное имя", fullName, MinFullNameLength, MaxFullNameLength); err != nil {
		return err
	}

	if !fullNameRegex.MatchString(fullName) {
		return fmt.Errorf("полное имя содержит недопустимые символы")
	}

	return nil
}

// ValidateCoverLetter проверяет текст сопроводительного письма; пустой текст допустим.
func ValidateCoverLetter(coverLetter string) error {
	return ValidateLength("сопроводительное письмо", strings.TrimSpace(coverLetter), 0, MaxCoverLetterLength)
}
