// Package storage adapts the document object store behind a narrow upload
// contract. Keys are deterministic paths (compliance/{id}.pdf,
// insurance/{id}.pdf) so retried uploads overwrite instead of duplicating.
package storage

import "context"

// ObjectStore uploads a document and returns a durable, fetchable URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ComplianceKey is the storage key for an applicant's police form.
func ComplianceKey(nationalID string) string {
	return "compliance/" + nationalID + ".pdf"
}

// InsuranceKey is the storage key for an applicant's insurance document.
func InsuranceKey(nationalID string) string {
	return "insurance/" + nationalID + ".pdf"
}
