// Package health exposes the job process's liveness over HTTP for
// operator tooling, mirroring state/service.go's runHealth: a bare
// nelkinda/health-go handler for generic liveness at "/healthz", plus a
// custom JSON status handler (state/service.go's healthStatusHandler) for
// the job/client flags the wire-protocol ping endpoint in internal/job
// already answers over ZeroMQ for the client specifically, not for
// operators.
package health

import (
	"fmt"
	"net/http"

	"github.com/nelkinda/health-go"
)

// Status reports the two flags operators care about.
type Status struct {
	JobAlive    func() bool
	ClientAlive func() bool
}

// Handler builds the generic "/healthz" liveness handler, the bare
// health.New(...).Handler state/service.go registers with no checker
// argument.
func Handler() http.Handler {
	h := health.New(health.Health{
		Version:   "1",
		ReleaseID: "1",
	})
	return http.HandlerFunc(h.Handler)
}

// StatusHandler builds the custom "/health" handler reporting job/client
// liveness as JSON, following healthStatusHandler's status-then-JSON shape.
func StatusHandler(status Status) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jobAlive := status.JobAlive()
		clientAlive := status.ClientAlive()

		w.Header().Set("Content-Type", "application/json")
		if jobAlive {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		fmt.Fprintf(w, `{"job_alive":%t,"client_alive":%t}`, jobAlive, clientAlive)
	})
}
