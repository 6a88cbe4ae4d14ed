package services

import (
	"bothive/internal/db/repositories"
	"bothive/internal/logging"
)

// AuditService records security-sensitive actions. A failed write is logged
// and swallowed so it never masks the operation being audited.
type AuditService struct {
	repos *repositories.Repositories
}

func NewAuditService(repos *repositories.Repositories) *AuditService {
	return &AuditService{repos: repos}
}

func (s *AuditService) Record(userID int64, action, targetID, ipAddress string) {
	s.RecordDetail(userID, action, targetID, ipAddress, "")
}

func (s *AuditService) RecordDetail(userID int64, action, targetID, ipAddress, detail string) {
	var details *string
	if detail != "" {
		details = &detail
	}
	if _, err := s.repos.AuditLogs.Create(&userID, action, targetID, ipAddress, details); err != nil {
		logging.Warn("Failed to write audit log (action=%s target=%s): %v", action, targetID, err)
	}
}
