package job

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"

	"github.com/geoffjay/plantd-job/internal/codec"
	"github.com/geoffjay/plantd-job/internal/zmqutil"
)

// endpoints owns the four server-role sockets and the two outbound
// client-role sockets for the lifetime of the process (the client
// heartbeat socket aside, which is rebuilt on every reset).
type endpoints struct {
	host string

	request    *czmq.Sock
	workerHB   *czmq.Sock
	clientHB   *czmq.Sock
	ping       *czmq.Sock
	toWorker   *czmq.Sock
	toMaster   *czmq.Sock

	requestAddr  string
	workerHBAddr string
	clientHBAddr string
	pingAddr     string

	clientTimeout time.Duration
	workerTimeout time.Duration
}

// newEndpoints binds the four server sockets and dials the two outbound
// channels, then sends the startup announcement to the worker and waits
// for its acknowledgement, matching the Python job's _create_sockets.
// bindHost is the advertised host from JobConfig.BindHost; "" or the
// unspecified "0.0.0.0" default fall back to the auto-detected primary IP,
// since neither is a routable address a peer could dial back.
func newEndpoints(bindHost, workerAddress, masterAddress string, clientTimeout, workerTimeout time.Duration) (*endpoints, error) {
	host := bindHost
	if host == "" || host == "0.0.0.0" {
		var err error
		host, err = zmqutil.PrimaryIP()
		if err != nil {
			return nil, newError("BIND", "failed to determine primary IP", err)
		}
	}

	e := &endpoints{
		host:          host,
		clientTimeout: clientTimeout,
		workerTimeout: workerTimeout,
	}

	var err error
	if e.request, e.requestAddr, err = zmqutil.Server(host); err != nil {
		return nil, newError("BIND", "failed to bind request endpoint", err)
	}
	if e.workerHB, e.workerHBAddr, err = zmqutil.ServerWithDeadline(host, workerTimeout); err != nil {
		e.closeAll()
		return nil, newError("BIND", "failed to bind worker heartbeat endpoint", err)
	}
	if e.clientHB, e.clientHBAddr, err = zmqutil.ServerWithDeadline(host, clientTimeout); err != nil {
		e.closeAll()
		return nil, newError("BIND", "failed to bind client heartbeat endpoint", err)
	}
	if e.ping, e.pingAddr, err = zmqutil.Server(host); err != nil {
		e.closeAll()
		return nil, newError("BIND", "failed to bind ping endpoint", err)
	}

	if e.toWorker, err = zmqutil.Dial(workerAddress); err != nil {
		e.closeAll()
		return nil, newError("DIAL", "failed to dial worker", err)
	}
	if e.toMaster, err = zmqutil.Dial(masterAddress); err != nil {
		e.closeAll()
		return nil, newError("DIAL", "failed to dial master", err)
	}

	if err := e.announceStartup(workerAddress); err != nil {
		e.closeAll()
		return nil, err
	}

	return e, nil
}

func (e *endpoints) identity() Identity {
	return Identity{
		RequestAddress:         e.requestAddr,
		WorkerHeartbeatAddress: e.workerHBAddr,
		PingAddress:            e.pingAddr,
		Pid:                    os.Getpid(),
	}
}

// announceStartup ships the initial InitializedJob to the worker and
// blocks until it acknowledges.
func (e *endpoints) announceStartup(workerAddress string) error {
	pid := os.Getpid()
	announcement := InitializedJob{
		RequestAddress:         e.requestAddr,
		WorkerHeartbeatAddress: &e.workerHBAddr,
		ClientHeartbeatAddress: e.clientHBAddr,
		PingAddress:            e.pingAddr,
		WorkerAddress:          &workerAddress,
		Pid:                    &pid,
	}

	payload, err := codec.Encode(announcement)
	if err != nil {
		return newError("ENCODE", "failed to encode startup announcement", err)
	}

	if err := zmqutil.Send(e.toWorker, TagNormal, payload); err != nil {
		return newError("DIAL", "failed to send startup announcement", err)
	}

	if _, _, err := zmqutil.Recv(e.toWorker); err != nil {
		return newError("DIAL", "worker did not acknowledge startup announcement", err)
	}

	log.WithFields(log.Fields{
		"request": e.requestAddr,
		"worker":  workerAddress,
	}).Info("job announced to worker")

	return nil
}

// rebindClientHeartbeat binds a fresh client-heartbeat socket, returning its
// new address. Called once per reset, only after the previous
// client-heartbeat responder goroutine has exited; that goroutine owns and
// destroys the old socket itself (see runHeartbeatLoop), so there is
// nothing left here to tear down.
func (e *endpoints) rebindClientHeartbeat() error {
	sock, addr, err := zmqutil.ServerWithDeadline(e.host, e.clientTimeout)
	if err != nil {
		return newError("BIND", "failed to rebind client heartbeat endpoint", err)
	}
	e.clientHB = sock
	e.clientHBAddr = addr
	return nil
}

// announceReset builds the reset InitializedJob (worker-only fields nil per
// spec.md §4.3 step 5) and sends RESET_JOB to the master. A send or receive
// that returns an error is retried a bounded number of times before giving
// up. The master channel has no receive deadline, so a master that never
// replies blocks this call indefinitely rather than exhausting the retries.
func (e *endpoints) announceReset() error {
	announcement := InitializedJob{
		RequestAddress:         e.requestAddr,
		WorkerHeartbeatAddress: nil,
		ClientHeartbeatAddress: e.clientHBAddr,
		PingAddress:            e.pingAddr,
		WorkerAddress:          nil,
		Pid:                    nil,
	}

	payload, err := codec.Encode(announcement)
	if err != nil {
		return newError("ENCODE", "failed to encode reset announcement", err)
	}

	var lastErr error
	backoff := defaultClientHeartbeatTimeout
	for attempt := 1; attempt <= masterAckRetries; attempt++ {
		if err := zmqutil.Send(e.toMaster, TagResetJob, payload); err != nil {
			lastErr = err
		} else if _, _, err := zmqutil.Recv(e.toMaster); err != nil {
			lastErr = err
		} else {
			return nil
		}

		log.WithFields(log.Fields{
			"attempt": attempt,
			"error":   lastErr,
		}).Warn("master did not acknowledge reset, retrying")
		time.Sleep(backoff)
		backoff *= 2
	}

	return fmt.Errorf("%w: %v", ErrMasterUnreachable, lastErr)
}

func (e *endpoints) closeAll() {
	for _, sock := range []*czmq.Sock{e.request, e.workerHB, e.clientHB, e.ping, e.toWorker, e.toMaster} {
		if sock != nil {
			sock.Destroy()
		}
	}
}
