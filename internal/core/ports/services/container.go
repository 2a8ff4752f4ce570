package services

// ServiceContainer bundles the service implementations handed to the
// handler layer.
type ServiceContainer struct {
	Payment PaymentSvcFacade
	Audit   AuditSvc
}
