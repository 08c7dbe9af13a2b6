// Package harvest defines the shared contracts of the retrieval pipeline:
// work items, attempt outcomes, ledger-facing report types, and the error
// taxonomy used to classify fetch failures as retryable or fatal.
package harvest
