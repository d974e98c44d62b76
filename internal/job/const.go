package job

import "time"

const (
	// defaultClientHeartbeatTimeout is the client responder's receive
	// deadline, a single-digit number of seconds per spec.md §6.
	defaultClientHeartbeatTimeout = 5 * time.Second

	// defaultWorkerHeartbeatTimeout is longer than the client's, matching
	// core/mdp/const.go's HeartbeatExpiry convention of a worker-facing
	// timeout derived from a liveness count rather than a single interval.
	defaultWorkerHeartbeatTimeout = 10 * time.Second

	// masterAckRetries bounds the reset-announcement retry loop described
	// in spec.md §9's first open question.
	masterAckRetries = 3
)
