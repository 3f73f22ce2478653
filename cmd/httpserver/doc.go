// Package main (cmd/httpserver) runs the registration ledger API server.
//
// The server appends form-submitted registrations to a YAML document kept in a
// document store, by default registrations.yaml on the main branch of
// akashverma-ctrl/receiptify-data on GitHub. Each registration is one
// read-modify-write of that document, conditioned on the version read.
//
// Example usage against GitHub:
//
//	GITHUB_TOKEN=ghp_... registration-server \
//	    --listen-addr=0.0.0.0:8080 \
//	    --github-owner=akashverma-ctrl --github-repo=receiptify-data
//
// Example usage with a local file mirrored to S3:
//
//	registration-server --store-uri=file:///var/lib/ledger/registrations.yaml \
//	    --mirror-uri='s3://ledger-backup/registrations.yaml?region=eu-west-1'
//
// The server shuts down gracefully on SIGINT/SIGTERM.
package main
