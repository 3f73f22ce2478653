// Package storage provides version-checked document stores with pluggable backends.
//
// Every backend keeps exactly one document and hands out an opaque version
// token with each read. A write carries the token it was based on and the
// backend refuses it if the document moved on in the meantime:
//
//   - GitHub repository file via the contents API (token: git blob sha)
//   - Local file for development and testing (token: git blob sha)
//   - HashiCorp Vault KV v2 secret (token: KV version, check-and-set)
//   - S3-compatible object (token: ETag)
//   - IPFS mutable file system path (token: MFS node hash)
//
// The S3 and IPFS checks are serialized within one process only; neither
// service offers a conditional put through the client libraries used here.
// A Vault secret whose latest version was deleted reads as missing and is
// recreated on top of that version.
//
// # Store URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URIs:
//
//   - github://owner/repo/path/to/registrations.yaml?branch=main&api=https://ghe.local/api/v3
//   - file:///var/lib/ledger/registrations.yaml
//   - vault://vault.example.com:8200/secret/registrations?tls=false
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/registrations.yaml?region=eu-west-1&endpoint=minio:9000
//   - ipfs://127.0.0.1:5001/ledger/registrations.yaml?timeout=30s
//
// Credentials for GitHub and Vault are passed through FactoryOptions rather
// than the URI.
//
// # Mirroring
//
// MirroredStore pairs a primary store with mirrors. Reads and conditional
// writes go to the primary only; after a successful primary write the new
// content is copied to every mirror concurrently, overwriting whatever version
// the mirror holds. Mirror failures are logged and never fail the write.
//
// # Testing
//
// The githubtest subpackage serves a fake contents API for a single file with
// GitHub's sha-checked write semantics.
package storage
