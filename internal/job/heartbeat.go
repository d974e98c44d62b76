package job

import (
	czmq "github.com/zeromq/goczmq/v4"

	log "github.com/sirupsen/logrus"

	"github.com/geoffjay/plantd-job/internal/zmqutil"
)

// runHeartbeatLoop implements the loop all three responders share: wait
// for a probe, reply HEARTBEAT. onTimeout is invoked when the receive
// deadline elapses (a no-op for the ping responder, which has no
// deadline); it returns true if the loop should exit. The responder never
// writes without first having read, and always closes sock on exit.
func runHeartbeatLoop(name string, sock *czmq.Sock, alive func() bool, onTimeout func() bool) {
	defer sock.Destroy()

	for alive() {
		_, _, err := zmqutil.Recv(sock)
		if err != nil {
			if onTimeout != nil && onTimeout() {
				log.WithField("responder", name).Warn("heartbeat responder exiting after timeout")
				return
			}
			continue
		}

		if err := zmqutil.Send(sock, TagHeartbeat); err != nil {
			log.WithFields(log.Fields{"responder": name, "error": err}).Error("failed to send heartbeat reply")
		}
	}

	log.WithField("responder", name).Debug("heartbeat responder exiting, job no longer alive")
}

// runPingResponder replies to client liveness probes. It has no receive
// deadline and only exits when the job dies.
func runPingResponder(sock *czmq.Sock, f *flags) {
	runHeartbeatLoop("ping", sock, f.JobAlive, nil)
}

// runWorkerHeartbeatResponder replies to worker probes. A receive timeout
// means the worker is gone. The session driver may be blocked indefinitely
// on the request endpoint at this point (it has no receive deadline), so
// the only way to honor "worker loss is fatal to the process" is to exit
// here directly rather than relying on the driver to notice jobAlive went
// false.
func runWorkerHeartbeatResponder(sock *czmq.Sock, f *flags) {
	runHeartbeatLoop("worker", sock, f.JobAlive, func() bool {
		f.KillWorker()
		f.KillJob()
		log.Fatal("worker heartbeat lost, job process exiting")
		return true
	})
}

// runClientHeartbeatResponder replies to client probes. A receive timeout
// means the client is gone: only this session resets.
func runClientHeartbeatResponder(sock *czmq.Sock, f *flags, done chan<- struct{}) {
	defer close(done)
	runHeartbeatLoop("client", sock, func() bool {
		return f.JobAlive() && f.ClientAlive()
	}, func() bool {
		f.KillClient()
		return true
	})
}
