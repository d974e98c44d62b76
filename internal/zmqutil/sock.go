// Package zmqutil wraps the goczmq socket constructors used by the job
// process, matching the conventions of core/mdp's worker and client sockets
// but specialized for the job's direct REP/REQ endpoints rather than the
// MDP broker's ROUTER/DEALER pairing.
package zmqutil

import (
	"fmt"
	"strings"
	"time"

	czmq "github.com/zeromq/goczmq/v4"
)

// Server binds a REP socket to an ephemeral port on all interfaces and
// reports the address it should be advertised as: advertiseHost combined
// with the port the kernel actually handed out.
func Server(advertiseHost string) (sock *czmq.Sock, address string, err error) {
	sock, err = czmq.NewRep("tcp://*:*")
	if err != nil {
		return nil, "", fmt.Errorf("bind server endpoint: %w", err)
	}
	sock.SetOption(czmq.SockSetLinger(0))

	endpoint, err := sock.Endpoint()
	if err != nil {
		sock.Destroy()
		return nil, "", fmt.Errorf("resolve bound endpoint: %w", err)
	}

	return sock, fmt.Sprintf("%s:%s", advertiseHost, port(endpoint)), nil
}

// ServerWithDeadline is Server plus a receive timeout, used by the two
// heartbeat responders that must surface a silent peer rather than block
// forever.
func ServerWithDeadline(advertiseHost string, deadline time.Duration) (sock *czmq.Sock, address string, err error) {
	sock, address, err = Server(advertiseHost)
	if err != nil {
		return nil, "", err
	}
	sock.SetOption(czmq.SockSetRcvtimeo(int(deadline / time.Millisecond)))
	return sock, address, nil
}

// Dial connects a REQ socket to a remote REP endpoint.
func Dial(address string) (sock *czmq.Sock, err error) {
	sock, err = czmq.NewReq(fmt.Sprintf("tcp://%s", address))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	sock.SetOption(czmq.SockSetLinger(0))
	return sock, nil
}

// port extracts the port suffix from a CZMQ-reported "tcp://host:port"
// endpoint string.
func port(endpoint string) string {
	idx := strings.LastIndex(endpoint, ":")
	if idx < 0 || idx == len(endpoint)-1 {
		return endpoint
	}
	return endpoint[idx+1:]
}
