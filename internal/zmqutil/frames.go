package zmqutil

import czmq "github.com/zeromq/goczmq/v4"

// Send writes a multipart message, tag first. Mirrors core/mdp's
// stringArrayToByte2D conversion before handing frames to goczmq.
func Send(sock *czmq.Sock, tag string, parts ...[]byte) error {
	frames := make([][]byte, 0, 1+len(parts))
	frames = append(frames, []byte(tag))
	frames = append(frames, parts...)
	return sock.SendMessage(frames)
}

// Recv reads a multipart message and splits it into its tag and the
// remaining frames.
func Recv(sock *czmq.Sock) (tag string, parts [][]byte, err error) {
	frames, err := sock.RecvMessage()
	if err != nil {
		return "", nil, err
	}
	if len(frames) == 0 {
		return "", nil, nil
	}
	return string(frames[0]), frames[1:], nil
}
