/*
Package api is the agent's HTTP presentation of the orchestration contract.

Routes:

	GET  /health                               unauthenticated liveness check
	GET  /metrics                              Prometheus metrics
	GET  /v1/containers                        list managed containers
	POST /v1/containers                        create + start a container
	DEL  /v1/containers/{descriptor}           stop + remove a container
	POST /v1/containers/{descriptor}/start     start
	POST /v1/containers/{descriptor}/stop      graceful stop
	GET  /v1/containers/{descriptor}/stats     one-shot resource stats
	GET  /v1/console                           websocket console session
	POST /v1/update-token                      two-phase token rotation
	POST /v1/self-update                       schedule a binary self-update

Everything except /health demands a bearer token equal to the current
credential; during a rotation window an unexpired pending token is also
honored when the controller's pending store is wired in-process. Auth
failures are opaque; the caller never learns which check failed.

Error classes map to statuses: conflict 409 (with the occupied port list),
not-found 404, precondition 400, unauthorized 401, internal 500.

The console endpoint upgrades to websocket; the first frame must be a JSON
hello `{"descriptor": "<uuid>"}`, after which frames are raw bytes in both
directions.
*/
package api
