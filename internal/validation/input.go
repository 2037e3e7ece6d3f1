package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxRequestDescriptionLength = 5000
	MaxWebhookRefLength         = 128
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

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// NormalizeText обрезает пробелы по краям и убирает управляющие символы, кроме переводов строк и табуляции.
func NormalizeText(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(cleaned)
}

// ValidateRequestDescription проверяет уже нормализованное описание заявки.
func ValidateRequestDescription(description string) error {
	if description == "" {
		return fmt.Errorf("описание заявки обязательно")
	}
	return ValidateLength("описание заявки", description, 1, MaxRequestDescriptionLength)
}

// ValidateExternalRef проверяет идентификатор платежа из уведомления шлюза.
func ValidateExternalRef(ref string) error {
	if err := ValidateNonEmpty("external_ref", ref); err != nil {
		return err
	}
	if err := ValidateLength("external_ref", ref, 1, MaxWebhookRefLength); err != nil {
		return err
	}
	for _, r := range ref {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("external_ref содержит недопустимые символы")
		}
	}
	return nil
}
