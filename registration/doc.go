// Package registration implements the registration ledger: an append-only
// list of payment registrations kept as one YAML document in a DocumentStore.
//
// # Record Schema
//
// The document is a YAML sequence of mappings with exactly these string keys,
// written in this order with an indent of two spaces:
//
//	- student_name: A
//	  email: a@x.com
//	  transaction_id: T1
//
// An absent document reads as an empty list, and an empty list encodes as
// "[]". A stored document that does not match the schema is reported as a
// *SchemaError and is never overwritten.
//
// # Register Cycle
//
// Each call to Registrar.Register performs one read-modify-write:
//
//  1. Read the document and its version token.
//  2. If transaction_id is already present, return OutcomeDuplicate without writing.
//  3. Append the record and encode the list.
//  4. Write it conditioned on the version token from step 1.
//
// A write the store refuses, most often because another registration landed
// in between, is returned as OutcomeRejected together with the store's
// response. It is not retried.
package registration
