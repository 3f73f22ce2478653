/*
Package httpserver serves the registration ledger API.

Routes:

	GET  /healthz         liveness of the API process, {"status":"ok"}
	POST /register/       append a registration (also POST /register)
	GET  /registrations   stored registrations, in stored order
	GET  /livez           {"status":"alive"}
	GET  /readyz          503 while draining or when the document store is unavailable
	GET  /drain           mark not ready and hold for the drain duration
	GET  /undrain         mark ready again
	     /debug/*         pprof, when enabled

Every request passes through panic recovery and a permissive CORS policy
(all origins, methods and headers, credentials allowed). API routes are
access-logged with the flashbots slog middleware.

The handler holds no registration state. Each POST /register/ runs one
read-modify-write cycle of registration.Registrar against the document store;
two concurrent submissions that read the same version leave the second one
rejected by the store, reported to its client as {"error":true,"details":...}.

Prometheus metrics are served by a separate metrics.MetricsServer on its own
address.
*/
package httpserver
