// Package guard is the orchestration core of the watermark pipeline:
// the transactional asset uploader, the verification orchestrator, and
// the notification policy boundary. It coordinates the catalog, blob
// store, watermark oracle and tamper analyzer through narrow
// interfaces and owns the compensation logic that keeps the stores
// consistent.
package guard

// GuardService coordinates across all components to perform uploads
// and verifications.
type GuardService struct {
	catalog   Catalog
	blobs     BlobStore
	oracle    Oracle
	encryptor Encryptor // optional; nil leaves pristine copies plain
	logger    Logger
	clock     Clock
	tokens    TokenGenerator
}

// NewGuardService creates a GuardService with the provided
// dependencies. encryptor may be nil.
func NewGuardService(catalog Catalog, blobs BlobStore, oracle Oracle, encryptor Encryptor, logger Logger, clock Clock, tokens TokenGenerator) *GuardService {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &GuardService{
		catalog:   catalog,
		blobs:     blobs,
		oracle:    oracle,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		tokens:    tokens,
	}
}
