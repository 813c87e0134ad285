package ingestion

import (
	"strings"

	"github.com/yungbote/hansard-backend/internal/domain"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
)

// ValidateRawHansard checks the structural invariants of an upstream sitting
// document. The upstream schema is loose, so this is the single place the
// shape is enforced; pipelines downstream assume it has passed.
func ValidateRawHansard(raw *domain.RawHansard) error {
	if raw == nil {
		return apperrors.MalformedSource("raw hansard is empty")
	}
	if strings.TrimSpace(raw.Metadata.SittingDate) == "" {
		return apperrors.MalformedSource("metadata.sitting_date missing")
	}
	if strings.TrimSpace(raw.Metadata.DisplayDate) == "" {
		return apperrors.MalformedSource("metadata.display_date missing")
	}
	if raw.Sections == nil {
		return apperrors.MalformedSource("sections missing")
	}
	if raw.Attendance == nil {
		return apperrors.MalformedSource("attendance missing")
	}
	return nil
}
