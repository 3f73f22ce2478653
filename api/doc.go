/*
Package api defines the wire types of the registration ledger HTTP API and,
in the client subpackage, a Go client for it.

# Endpoints

	GET  /healthz         {"status":"ok"}
	POST /register/       form fields student_name, email, transaction_id
	GET  /registrations   JSON array of stored records, in stored order

POST /register/ answers one of:

	{"success":true,"message":"Registered <student_name> successfully"}
	{"error":true,"message":"Transaction already exists"}
	{"error":true,"details":<document store error body>}

with HTTP 200. A form missing a field gets 422, a store that could not be read
or reached gets 502 and any other fault gets 500, each with an error body.
*/
package api
