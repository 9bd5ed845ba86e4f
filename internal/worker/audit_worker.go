package worker

import (
	"github.com/spec-kit/accomplishment-service/internal/service"
)

// StartAuditWorker subscribes the audit trail to account events.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
