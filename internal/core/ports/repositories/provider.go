package repositories

// RepositoryProvider bundles the repository implementations handed to the
// service layer.
type RepositoryProvider struct {
	PaymentRepo PaymentRepositoryFacade
	InvoiceRepo InvoiceReader
	AuditRepo   AuditWriter
}
