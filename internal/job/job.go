// Package job implements the remote job worker process: the long-lived
// program spawned by a worker host that announces itself, waits for a code
// bundle and a task object, serves method calls for a client, and resets
// back to waiting whenever the client disconnects or the task errors.
package job

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/geoffjay/plantd-job/internal/metrics"
)

// Config collects the parameters a Job needs to start, independent of how
// the caller obtained them (CLI flags or config.JobConfig).
type Config struct {
	BindHost               string
	WorkerAddress          string
	MasterAddress          string
	ClientHeartbeatTimeout time.Duration
	WorkerHeartbeatTimeout time.Duration
}

// Job owns the process-lifetime state: the four endpoints, the three
// lifecycle flags, and the session driver that ties them together.
type Job struct {
	endpoints *endpoints
	flags     *flags
	driver    *driver
	metrics   *metrics.Collector
}

// New binds all endpoints and announces startup to the worker, returning
// once the worker has acknowledged. The three heartbeat responders are not
// started yet; Run starts the ping and worker responders immediately and
// the client responder once per session.
func New(cfg Config, m *metrics.Collector) (*Job, error) {
	clientTimeout := cfg.ClientHeartbeatTimeout
	if clientTimeout <= 0 {
		clientTimeout = defaultClientHeartbeatTimeout
	}
	workerTimeout := cfg.WorkerHeartbeatTimeout
	if workerTimeout <= 0 {
		workerTimeout = defaultWorkerHeartbeatTimeout
	}

	e, err := newEndpoints(cfg.BindHost, cfg.WorkerAddress, cfg.MasterAddress, clientTimeout, workerTimeout)
	if err != nil {
		return nil, err
	}

	f := newFlags()

	return &Job{
		endpoints: e,
		flags:     f,
		driver:    newDriver(e, f, m),
		metrics:   m,
	}, nil
}

// Status exposes the lifecycle flags for the health package, without
// leaking the flags type itself outside the package.
func (j *Job) Status() (jobAlive func() bool, clientAlive func() bool) {
	return j.flags.JobAlive, j.flags.ClientAlive
}

// Stop marks the job dead, causing Run to return once the driver notices
// between messages. Used for an operator-requested shutdown (SIGINT,
// SIGTERM); worker loss instead exits the process directly (heartbeat.go).
func (j *Job) Stop() {
	j.flags.KillJob()
}

// Run starts the ping and worker heartbeat responders and drives sessions
// until the job dies, either from worker loss (which exits the process
// directly, see heartbeat.go) or from exhausting the reset-ack retry
// budget against the master.
func (j *Job) Run() error {
	identity := j.endpoints.identity()
	log.WithFields(log.Fields{
		"request": identity.RequestAddress,
		"ping":    identity.PingAddress,
		"pid":     identity.Pid,
	}).Info("job process started")

	go runPingResponder(j.endpoints.ping, j.flags)
	go runWorkerHeartbeatResponder(j.endpoints.workerHB, j.flags)

	err := j.driver.Run()

	j.endpoints.closeAll()
	return err
}
