package zmqutil

import (
	"fmt"
	"net"
)

// PrimaryIP returns the host's outbound IPv4 address, the Go equivalent of
// the original job's get_ip_address() helper: it opens a UDP "connection"
// to a public address purely to let the kernel pick the outbound interface,
// then reads the local address off that socket. No packet is sent.
func PrimaryIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("determine primary IP: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("determine primary IP: unexpected local address type")
	}
	return addr.IP.String(), nil
}
