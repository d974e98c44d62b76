package job

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	czmq "github.com/zeromq/goczmq/v4"

	"github.com/geoffjay/plantd-job/internal/codec"
	"github.com/geoffjay/plantd-job/internal/metrics"
	"github.com/geoffjay/plantd-job/internal/registry"
	"github.com/geoffjay/plantd-job/internal/zmqutil"

	_ "github.com/geoffjay/plantd-job/internal/registry/echotask"
)

// failingTask is a minimal task type whose every method raises a plain
// error, used to exercise the generic EXCEPTION-plus-traceback path a
// missing-method or malformed-payload error never takes.
type failingTask struct{}

func (t *failingTask) Call(method string, args []byte) ([]byte, error) {
	return nil, errors.New("boom: task exploded")
}

const failingTaskDescriptor = "test.job.Failing"

func init() {
	registry.Register(failingTaskDescriptor, func(_ []byte) (registry.Instance, error) {
		return &failingTask{}, nil
	})
}

// fakePeer binds a REP socket on loopback that answers every message with
// whatever handle returns, playing the worker or master role for a test.
func fakePeer(t *testing.T, handle func(tag string, parts [][]byte) (string, [][]byte)) (addr string, sock *czmq.Sock) {
	t.Helper()

	sock, addr, err := zmqutil.Server("127.0.0.1")
	require.NoError(t, err)

	go func() {
		for {
			tag, parts, err := zmqutil.Recv(sock)
			if err != nil {
				return
			}
			replyTag, replyParts := handle(tag, parts)
			_ = zmqutil.Send(sock, replyTag, replyParts...)
		}
	}()

	return addr, sock
}

// testJob starts a real Job against fake worker and master peers and
// returns it along with a REQ socket dialed to its request endpoint and a
// channel that receives a value every time the fake master sees RESET_JOB.
func testJob(t *testing.T) (j *Job, client *czmq.Sock, resetReceived chan struct{}) {
	t.Helper()

	workerAddr, workerSock := fakePeer(t, func(tag string, parts [][]byte) (string, [][]byte) {
		return TagNormal, nil
	})
	t.Cleanup(workerSock.Destroy)

	resetReceived = make(chan struct{}, 8)
	masterAddr, masterSock := fakePeer(t, func(tag string, parts [][]byte) (string, [][]byte) {
		if tag == TagResetJob {
			resetReceived <- struct{}{}
		}
		return TagNormal, nil
	})
	t.Cleanup(masterSock.Destroy)

	collector := metrics.NewCollector(prometheus.NewRegistry())

	j, err := New(Config{
		WorkerAddress:          workerAddr,
		MasterAddress:          masterAddr,
		ClientHeartbeatTimeout: 2 * time.Second,
		WorkerHeartbeatTimeout: 2 * time.Second,
	}, collector)
	require.NoError(t, err)

	go func() { _ = j.Run() }()
	t.Cleanup(j.Stop)

	client, err = zmqutil.Dial(j.endpoints.identity().RequestAddress)
	require.NoError(t, err)
	t.Cleanup(client.Destroy)

	return j, client, resetReceived
}

func sendFiles(t *testing.T, client *czmq.Sock, bundle codec.FileBundle) {
	t.Helper()
	payload, err := codec.Encode(bundle)
	require.NoError(t, err)
	require.NoError(t, zmqutil.Send(client, TagSendFile, payload))
	tag, _, err := zmqutil.Recv(client)
	require.NoError(t, err)
	require.Equal(t, TagNormal, tag)
}

func initEcho(t *testing.T, client *czmq.Sock) {
	t.Helper()
	initTask(t, client, "org.plantd.job.Echo")
}

func initTask(t *testing.T, client *czmq.Sock, descriptor string) {
	t.Helper()
	args, err := codec.EncodeCall(codec.Call{})
	require.NoError(t, err)
	require.NoError(t, zmqutil.Send(client, TagInitObject, []byte(descriptor), args))
	tag, _, err := zmqutil.Recv(client)
	require.NoError(t, err)
	require.Equal(t, TagNormal, tag)
}

func TestJobHappyPathThenKillJobResets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, client, resetReceived := testJob(t)

	sendFiles(t, client, codec.FileBundle{"main.py": []byte("# task source")})
	initEcho(t, client)

	callArgs, err := codec.Encode(struct {
		Args []int64 `json:"args"`
	}{Args: []int64{41}})
	require.NoError(t, err)
	require.NoError(t, zmqutil.Send(client, TagCall, []byte("Add"), callArgs))

	tag, parts, err := zmqutil.Recv(client)
	require.NoError(t, err)
	require.Equal(t, TagNormal, tag)

	var result int64
	require.NoError(t, codec.Decode(parts[0], &result))
	assert.EqualValues(t, 42, result)

	require.NoError(t, zmqutil.Send(client, TagKillJob))
	tag, _, err = zmqutil.Recv(client)
	require.NoError(t, err)
	assert.Equal(t, TagNormal, tag)

	select {
	case <-resetReceived:
	case <-time.After(3 * time.Second):
		t.Fatal("master never received RESET_JOB after KILLJOB")
	}
}

func TestJobUnknownMethodRaisesAttributeException(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, client, resetReceived := testJob(t)

	sendFiles(t, client, codec.FileBundle{"main.py": []byte("# task source")})
	initEcho(t, client)

	callArgs, err := codec.Encode(struct{}{})
	require.NoError(t, err)
	require.NoError(t, zmqutil.Send(client, TagCall, []byte("NoSuchMethod"), callArgs))

	tag, _, err := zmqutil.Recv(client)
	require.NoError(t, err)
	assert.Equal(t, TagAttrExc, tag)

	select {
	case <-resetReceived:
	case <-time.After(3 * time.Second):
		t.Fatal("master never received RESET_JOB after a task exception")
	}
}

func TestJobCallExceptionCarriesMessageAndTraceback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, client, resetReceived := testJob(t)

	sendFiles(t, client, codec.FileBundle{"main.py": []byte("# task source")})
	initTask(t, client, failingTaskDescriptor)

	callArgs, err := codec.Encode(struct{}{})
	require.NoError(t, err)
	require.NoError(t, zmqutil.Send(client, TagCall, []byte("whatever"), callArgs))

	tag, parts, err := zmqutil.Recv(client)
	require.NoError(t, err)
	require.Equal(t, TagException, tag)
	require.Len(t, parts, 1)

	payload := string(parts[0])
	assert.True(t, strings.HasPrefix(payload, "boom: task exploded"))
	assert.Contains(t, payload, "traceback")

	select {
	case <-resetReceived:
	case <-time.After(3 * time.Second):
		t.Fatal("master never received RESET_JOB after a task exception")
	}
}

func TestJobProtocolViolationDuringWaitForFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, client, resetReceived := testJob(t)

	require.NoError(t, zmqutil.Send(client, TagCall, []byte("Add")))

	tag, _, err := zmqutil.Recv(client)
	require.NoError(t, err)
	assert.Equal(t, TagException, tag)

	select {
	case <-resetReceived:
	case <-time.After(3 * time.Second):
		t.Fatal("master never received RESET_JOB after a protocol violation")
	}
}
