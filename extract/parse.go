package extract

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/noahcordero1/multi-subsidiary-scraper/models"
)

var errEmptyField = errors.New("empty field")

// parseAmount parses a contract sum under the portal's Austrian convention:
// "." as thousands separator, "," as decimal mark, optional currency sign
// and non-breaking spaces (e.g. "€ 1.234.567,89").
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	if s == "" || s == "-" {
		return 0, errEmptyField
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("negative contract value")
	}
	return v, nil
}

// parseBidderCount parses the bidder column as a non-negative integer.
func parseBidderCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, errEmptyField
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative bidder count")
	}
	return n, nil
}

// parseDate parses the portal's DD.MM.YYYY update date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return time.Time{}, errEmptyField
	}
	return time.Parse(models.DateFormat, s)
}
