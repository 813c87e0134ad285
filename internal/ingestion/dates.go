package ingestion

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
)

var (
	dmyPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// CanonicalDate converts an accepted sitting date (DD-MM-YYYY or YYYY-MM-DD)
// into the canonical ISO form used in every key. Anything else is rejected.
func CanonicalDate(input string) (string, error) {
	input = strings.TrimSpace(input)
	switch {
	case dmyPattern.MatchString(input):
		t, err := time.Parse("02-01-2006", input)
		if err != nil {
			return "", apperrors.BadRequest(fmt.Sprintf("invalid sitting date %q", input))
		}
		return t.Format("2006-01-02"), nil
	case isoPattern.MatchString(input):
		t, err := time.Parse("2006-01-02", input)
		if err != nil {
			return "", apperrors.BadRequest(fmt.Sprintf("invalid sitting date %q", input))
		}
		return t.Format("2006-01-02"), nil
	default:
		return "", apperrors.BadRequest(fmt.Sprintf("sitting date %q must be DD-MM-YYYY or YYYY-MM-DD", input))
	}
}

// UpstreamDate renders a canonical date in the catalog's DD-MM-YYYY form.
func UpstreamDate(isoDate string) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("02-01-2006")
}

// TranscriptID derives the stable id for a sitting. Parliament and session
// numbers are folded in when the raw metadata carries both.
func TranscriptID(isoDate string, parliamentNo, sessionNo *int) string {
	if parliamentNo != nil && sessionNo != nil {
		return fmt.Sprintf("%s-p%d-s%d", isoDate, *parliamentNo, *sessionNo)
	}
	return isoDate + "-sitting-1"
}
