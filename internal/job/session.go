package job

import (
	"errors"
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"

	"github.com/geoffjay/plantd-job/internal/codec"
	"github.com/geoffjay/plantd-job/internal/metrics"
	"github.com/geoffjay/plantd-job/internal/registry"
	"github.com/geoffjay/plantd-job/internal/zmqutil"
)

// driver runs the session state machine described in SPEC_FULL.md §4.3:
// WaitForFiles, StartClientHeartbeat, WaitForObject, ServeCalls, Reset,
// repeated until the job dies.
type driver struct {
	e *endpoints
	f *flags
	m *metrics.Collector
}

func newDriver(e *endpoints, f *flags, m *metrics.Collector) *driver {
	return &driver{e: e, f: f, m: m}
}

// Run drives sessions until the job is no longer alive. It only returns an
// error when the master could not be reached to acknowledge a reset after
// the bounded retry budget is exhausted, at which point the job kills
// itself rather than spin forever unable to announce it is free.
func (d *driver) Run() error {
	for d.f.JobAlive() {
		if err := d.runSession(); err != nil {
			log.WithError(err).Error("session ended in an unrecoverable reset failure")
			if errors.Is(err, ErrMasterUnreachable) {
				d.f.KillJob()
				d.m.SetJobAlive(false)
				return err
			}
		}
	}
	return nil
}

// runSession carries one attempt through the full lifecycle: wait for
// code, wait for the task object, serve calls until the client or job dies,
// then always tear down and announce the reset, whichever step the attempt
// actually reached.
func (d *driver) runSession() error {
	d.m.SessionStarted()

	previousSearchPath, err := d.waitForFiles()
	if err != nil {
		log.WithError(err).Warn("session failed waiting for code bundle")
		d.teardown(nil, previousSearchPath)
		return d.e.announceReset()
	}

	d.f.resetClient()
	d.m.SetClientAlive(true)
	hbDone := d.startClientHeartbeat()

	task, err := d.waitForObject()
	if err != nil {
		log.WithError(err).Warn("session failed waiting for task construction")
		d.f.KillClient()
		d.teardown(hbDone, previousSearchPath)
		return d.e.announceReset()
	}

	d.serveCalls(task)
	d.teardown(hbDone, previousSearchPath)
	return d.e.announceReset()
}

// waitForFiles implements step 1: accept exactly one SEND_FILE message,
// materialize its bundle into a scratch directory, and push that directory
// onto the task search path. Returns the search path to restore on reset.
func (d *driver) waitForFiles() ([]string, error) {
	tag, parts, err := zmqutil.Recv(d.e.request)
	if err != nil {
		return nil, fmt.Errorf("%w: receive failed: %v", ErrProtocolViolation, err)
	}
	if tag != TagSendFile || len(parts) != 1 {
		detail := fmt.Sprintf("expected SEND_FILE, got tag %q", tag)
		_ = sendException(d.e.request, TagException, detail)
		return nil, fmt.Errorf("%w: %s", ErrProtocolViolation, detail)
	}

	var bundle codec.FileBundle
	if err := codec.Decode(parts[0], &bundle); err != nil {
		_ = sendException(d.e.request, TagDeserialize, err.Error())
		return nil, err
	}

	dir, err := materializeBundle(bundle)
	if err != nil {
		_ = sendException(d.e.request, TagException, err.Error())
		return nil, err
	}
	previous := registry.PushSearchPath(dir)

	if err := zmqutil.Send(d.e.request, TagNormal); err != nil {
		return previous, fmt.Errorf("%w: ack SEND_FILE: %v", ErrProtocolViolation, err)
	}

	log.WithField("dir", dir).Debug("materialized code bundle")
	return previous, nil
}

// startClientHeartbeat launches the per-session client-heartbeat responder
// and returns the channel it closes on exit.
func (d *driver) startClientHeartbeat() chan struct{} {
	done := make(chan struct{})
	go runClientHeartbeatResponder(d.e.clientHB, d.f, done)
	return done
}

// waitForObject implements step 3: accept exactly one INIT_OBJECT message
// and construct the named task through the registry.
func (d *driver) waitForObject() (registry.Instance, error) {
	tag, parts, err := zmqutil.Recv(d.e.request)
	if err != nil {
		return nil, fmt.Errorf("%w: receive failed: %v", ErrProtocolViolation, err)
	}
	if tag != TagInitObject || len(parts) != 2 {
		detail := fmt.Sprintf("expected INIT_OBJECT, got tag %q", tag)
		_ = sendException(d.e.request, TagException, detail)
		return nil, fmt.Errorf("%w: %s", ErrProtocolViolation, detail)
	}

	descriptor := string(parts[0])
	instance, err := registry.New(descriptor, parts[1])
	if err != nil {
		_ = sendException(d.e.request, TagException, formatException(err))
		return nil, fmt.Errorf("construct %s: %w", descriptor, err)
	}

	if err := zmqutil.Send(d.e.request, TagNormal); err != nil {
		return nil, fmt.Errorf("%w: ack INIT_OBJECT: %v", ErrProtocolViolation, err)
	}

	log.WithField("descriptor", descriptor).Info("task instance constructed")
	return instance, nil
}

// serveCalls implements step 4: dispatch CALL and KILLJOB messages until
// the client or the job dies.
func (d *driver) serveCalls(task registry.Instance) {
	for d.f.JobAlive() && d.f.ClientAlive() {
		tag, parts, err := zmqutil.Recv(d.e.request)
		if err != nil {
			log.WithError(err).Warn("request endpoint receive failed, ending session")
			d.f.KillClient()
			return
		}

		switch tag {
		case TagCall:
			d.handleCall(task, parts)
		case TagKillJob:
			if err := zmqutil.Send(d.e.request, TagNormal); err != nil {
				log.WithError(err).Error("failed to ack KILLJOB")
			}
			d.f.KillClient()
			log.Info("session ended by KILLJOB")
		default:
			detail := fmt.Sprintf("unexpected tag %q during session", tag)
			_ = sendException(d.e.request, TagException, detail)
			d.f.KillClient()
			log.Warn(detail)
		}
	}
}

// handleCall dispatches a single CALL, classifying the task's error (if
// any) into the wire exception tag the client expects.
func (d *driver) handleCall(task registry.Instance, parts [][]byte) {
	if len(parts) != 2 {
		_ = sendException(d.e.request, TagException, "CALL requires a method name and a payload")
		d.f.KillClient()
		d.m.CallCompleted(false)
		return
	}

	method := string(parts[0])
	result, err := task.Call(method, parts[1])
	if err != nil {
		tag := TagException
		message := err.Error()
		switch {
		case errors.Is(err, registry.ErrNoSuchMethod):
			tag = TagAttrExc
		case errors.Is(err, codec.ErrDeserialize):
			tag = TagDeserialize
		case errors.Is(err, codec.ErrSerialize):
			tag = TagSerializeE
		default:
			message = formatException(err)
		}
		_ = sendException(d.e.request, tag, message)
		d.f.KillClient()
		d.m.CallCompleted(false)
		log.WithFields(log.Fields{"method": method, "error": err}).Warn("call failed, ending session")
		return
	}

	if err := zmqutil.Send(d.e.request, TagNormal, result); err != nil {
		log.WithError(err).Error("failed to send call result")
		d.f.KillClient()
		d.m.CallCompleted(false)
		return
	}

	d.m.CallCompleted(true)
}

// teardown implements step 5's cleanup: wait for the outgoing
// client-heartbeat responder to exit (it owns and destroys its own
// socket), restore the task search path, drop the task instance by simply
// letting it go out of scope in the caller, and rebind a fresh
// client-heartbeat endpoint for the next session.
func (d *driver) teardown(hbDone chan struct{}, previousSearchPath []string) {
	if hbDone != nil {
		<-hbDone
	} else {
		// The client-heartbeat responder never started this attempt (the
		// session failed in waitForFiles), so nothing owns the socket
		// bound by newEndpoints/the previous rebind; destroy it here
		// before rebinding in its place.
		d.e.clientHB.Destroy()
	}
	if err := d.e.rebindClientHeartbeat(); err != nil {
		log.WithError(err).Fatal("failed to rebind client heartbeat endpoint")
	}
	registry.RestoreSearchPath(previousSearchPath)
	d.m.SetClientAlive(false)
	d.m.Reset()
}

// sendException replies on sock with tag and message, used for every
// session-ending failure reply (EXCEPTION, ATTRIBUTE_EXCEPTION,
// SERIALIZE_EXCEPTION, DESERIALIZE_EXCEPTION all share this shape).
func sendException(sock *czmq.Sock, tag, message string) error {
	return zmqutil.Send(sock, tag, []byte(message))
}

// formatException builds the message-plus-traceback payload required for
// EXCEPTION replies (construction failures and generic CALL errors):
// spec.md §4.3 and §8 scenario 6 both require the reply to carry the error
// message followed by a formatted traceback. Go has no exception object to
// carry a captured stack from the point of failure, so this captures the
// current goroutine's stack at the point the session driver observes the
// error, the nearest Go analogue of the original's formatted traceback.
func formatException(err error) string {
	return fmt.Sprintf("%s\ntraceback:\n%s", err.Error(), debug.Stack())
}
