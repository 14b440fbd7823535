package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var prisonerNumberPattern = regexp.MustCompile(`^[A-Z]\d{4}[A-Z]{2}$`)

// NormalizePrisonerNumber приводит номер заключённого к верхнему регистру
// и проверяет формат A1234BC.
func NormalizePrisonerNumber(s string) (string, error) {
	number := strings.ToUpper(strings.TrimSpace(s))
	if !prisonerNumberPattern.MatchString(number) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrisonerNumber, s)
	}
	return number, nil
}

// BankTransferReference — ссылка для банковского перевода:
// номер заключённого и дата рождения, "A1234BC 21/01/1989".
func BankTransferReference(prisonerNumber string, dob time.Time) string {
	return fmt.Sprintf("%s %s", strings.ToUpper(prisonerNumber), dob.Format("02/01/2006"))
}
