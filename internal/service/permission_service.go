package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
)

// Rule issues reported by PermissionService.Check.
const (
	RuleIssueAuthentication   = "authentication"
	RuleIssueWriteRules       = "write_rules"
	RuleIssueReadRules        = "read_rules"
	RuleIssueAllRules         = "all_rules"
	RuleIssueSchemaValidation = "schema_validation"
	RuleIssueUnknown          = "unknown"
)

type PermissionProber interface {
	WriteProbe(ctx context.Context, userID string, at time.Time) (string, error)
	DeleteProbe(ctx context.Context, id string) error
	ReadOwnCoupons(ctx context.Context, userID string) (int, error)
}

type PermissionReport struct {
	Success   bool    `json:"success"`
	UserID    *string `json:"userId"`
	CanRead   bool    `json:"canRead"`
	CanWrite  bool    `json:"canWrite"`
	Error     string  `json:"error,omitempty"`
	RuleIssue *string `json:"ruleIssue"`
}

// PermissionService checks whether the caller may write and read the
// document store.
type PermissionService struct {
	probe PermissionProber
	now   func() time.Time
}

func NewPermissionService(probe PermissionProber) *PermissionService {
	return &PermissionService{probe: probe, now: time.Now}
}

// Check writes and removes a probe document, then reads one of the
// caller's coupons. Store failures are reported, not returned.
func (s *PermissionService) Check(ctx context.Context) PermissionReport {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return PermissionReport{Error: "Not authenticated", RuleIssue: issue(RuleIssueAuthentication)}
	}
	uid := id.UserID
	report := PermissionReport{UserID: &uid}

	writeErr := s.write(ctx, uid)
	_, readErr := s.probe.ReadOwnCoupons(ctx, uid)

	if writeErr == nil {
		report.CanWrite = true
		if readErr != nil {
			log.Error().Err(readErr).Str("user_id", uid).Msg("permission check: read failed")
			report.Error = readErr.Error()
			report.RuleIssue = issue(RuleIssueReadRules)
			return report
		}
		report.CanRead = true
		report.Success = true
		return report
	}

	log.Error().Err(writeErr).Str("user_id", uid).Msg("permission check: write failed")
	report.Error = writeErr.Error()
	ruleIssue := classifyWriteError(writeErr)
	if readErr == nil {
		report.CanRead = true
	} else if isPermissionDenied(readErr) {
		ruleIssue = RuleIssueAllRules
	}
	report.RuleIssue = issue(ruleIssue)
	return report
}

func (s *PermissionService) write(ctx context.Context, uid string) error {
	probeID, err := s.probe.WriteProbe(ctx, uid, s.now())
	if err != nil {
		return err
	}
	if err := s.probe.DeleteProbe(ctx, probeID); err != nil {
		log.Warn().Err(err).Str("probe_id", probeID).Msg("permission probe left behind")
	}
	return nil
}

func classifyWriteError(err error) string {
	if isPermissionDenied(err) {
		return RuleIssueWriteRules
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not authenticated") || strings.Contains(msg, "unauthenticated"):
		return RuleIssueAuthentication
	case strings.Contains(msg, "not found") || strings.Contains(msg, "field") || strings.Contains(msg, "schema"):
		return RuleIssueSchemaValidation
	}
	return RuleIssueUnknown
}

func isPermissionDenied(err error) bool {
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission-denied") || strings.Contains(msg, "permission denied")
}

func issue(s string) *string { return &s }
