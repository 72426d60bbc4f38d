package application

import (
	"context"
	"fmt"
	"regexp"
)

// Sequencer hands out the per-year application counter. Implementations must
// increment and read atomically.
type Sequencer interface {
	NextSequence(ctx context.Context, year int) (int64, error)
}

const maxSequence = 999_999

var reNumber = regexp.MustCompile(`^KYC\d{4}\d{6}$`)

// FormatNumber renders KYC<yyyy><seq:06d>.
func FormatNumber(year int, seq int64) (string, error) {
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("application number: year %d out of range", year)
	}
	if seq < 1 || seq > maxSequence {
		return "", fmt.Errorf("application number: sequence %d out of range for %d", seq, year)
	}
	return fmt.Sprintf("KYC%04d%06d", year, seq), nil
}

func ValidNumber(s string) bool { return reNumber.MatchString(s) }

// CertificateRef is where the approval certificate for number is published.
func CertificateRef(baseURL, number string) string {
	return fmt.Sprintf("%s/certificates/%s.pdf", baseURL, number)
}
