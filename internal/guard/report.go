package guard

import (
	"context"
	"fmt"
)

// AttachReport records where and how a verifier encountered a forged
// copy: an optional source link and free-text description. The catalog
// enforces the rules — once per record, verifying party only, and only
// when the record registered a detected tamper.
func (s *GuardService) AttachReport(ctx context.Context, token string, verifierID int64, link, text string) error {
	if link == "" && text == "" {
		return fmt.Errorf("%w: empty report", ErrReportRejected)
	}
	if err := s.catalog.AttachReport(ctx, token, verifierID, link, text); err != nil {
		return err
	}
	s.logger.Info("report attached", "token", token, "verifier_id", verifierID)
	return nil
}
