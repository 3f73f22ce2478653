// Package interfaces defines the document store contract shared by the
// registration core, the storage backends and the HTTP layer.
//
// # Document Store
//
// DocumentStore keeps exactly one document and guards every write with an
// opaque version token (Document.SHA). A write carrying a stale token is
// refused with *WriteRejectedError; a write without a token creates the
// document and is refused if it already exists.
//
// Read distinguishes three outcomes:
//
//   - a *Document (found)
//   - ErrDocumentNotFound (the document does not exist yet)
//   - any other error (network, authorization, store outage)
//
// Only the second one allows a caller to start from an empty document.
//
// # Locations
//
// StoreLocation is a parsed store URI:
//
//	github://owner/repo/path/to/file.yaml?branch=main
//	file:///var/lib/registrations.yaml
//	vault://vault.example.com:8200/secret/registrations
//	s3://bucket/registrations.yaml?region=us-east-1
//	ipfs://127.0.0.1:5001/registrations.yaml
package interfaces
