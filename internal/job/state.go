package job

import "sync/atomic"

// flags holds the three lifecycle booleans shared across the job's
// concurrent activities. Each is single-writer-per-flag after
// initialization per the spec's concurrency model: jobAlive is written by
// the worker-heartbeat responder and the session driver (both only ever to
// false); workerAlive by the worker-heartbeat responder only; clientAlive
// by the session driver and the client-heartbeat responder (both only ever
// to false). A race setting a flag to false twice is benign, so plain
// atomics are sufficient and no mutex is needed.
type flags struct {
	jobAlive    atomic.Bool
	workerAlive atomic.Bool
	clientAlive atomic.Bool
}

func newFlags() *flags {
	f := &flags{}
	f.jobAlive.Store(true)
	f.workerAlive.Store(true)
	f.clientAlive.Store(true)
	return f
}

func (f *flags) JobAlive() bool    { return f.jobAlive.Load() }
func (f *flags) WorkerAlive() bool { return f.workerAlive.Load() }
func (f *flags) ClientAlive() bool { return f.clientAlive.Load() }

func (f *flags) KillJob()    { f.jobAlive.Store(false) }
func (f *flags) KillWorker() { f.workerAlive.Store(false) }
func (f *flags) KillClient() { f.clientAlive.Store(false) }

// resetClient is called once a session's code bundle has been accepted,
// just before the client-heartbeat responder starts; after newFlags it is
// the only place clientAlive is ever set back to true.
func (f *flags) resetClient() { f.clientAlive.Store(true) }
