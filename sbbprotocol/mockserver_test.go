package sbbprotocol

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// closeConn is returned by a mock handler to make the server hang up
// instead of replying.
const closeConn = "\x00close"

// mockServer is a lightweight stand-in for a console running sys-botbase.
//
// It listens on a loopback TCP port and answers each received command line
// with whatever the handler returns. The handler receives the command
// without its line terminator and returns the raw bytes to write back
// (including any "\n"), "" for no reply, or closeConn to hang up.
type mockServer struct {
	listener net.Listener
	handler  func(cmd string) string

	// raw, when set, takes over each accepted connection entirely.
	raw func(conn net.Conn)

	mu          sync.Mutex
	connections []net.Conn
	received    []string
	accepted    int

	wg sync.WaitGroup
}

// startMockServer starts a mock console that is stopped when the test ends.
func startMockServer(t *testing.T, handler func(cmd string) string) *mockServer {
	t.Helper()
	if handler == nil {
		handler = defaultMockHandler
	}
	return startServer(t, &mockServer{handler: handler})
}

// startRawServer starts a mock console that hands every connection to fn.
func startRawServer(t *testing.T, fn func(conn net.Conn)) *mockServer {
	t.Helper()
	return startServer(t, &mockServer{raw: fn})
}

func startServer(t *testing.T, ms *mockServer) *mockServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create mock server listener: %v", err)
	}
	ms.listener = listener

	ms.wg.Add(1)
	go ms.acceptLoop()

	t.Cleanup(ms.stop)
	return ms
}

// port returns the TCP port the server listens on.
func (ms *mockServer) port() int {
	return ms.listener.Addr().(*net.TCPAddr).Port
}

// client returns a Client pointed at the server.
func (ms *mockServer) client(opts ...Option) *Client {
	return NewClient("127.0.0.1", append([]Option{WithPort(ms.port())}, opts...)...)
}

func (ms *mockServer) acceptLoop() {
	defer ms.wg.Done()

	for {
		conn, err := ms.listener.Accept()
		if err != nil {
			return
		}

		ms.mu.Lock()
		ms.connections = append(ms.connections, conn)
		ms.accepted++
		ms.mu.Unlock()

		ms.wg.Add(1)
		go ms.handleConnection(conn)
	}
}

func (ms *mockServer) handleConnection(conn net.Conn) {
	defer ms.wg.Done()
	defer conn.Close()

	if ms.raw != nil {
		ms.raw(conn)
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := strings.TrimSuffix(scanner.Text(), "\r")

		ms.mu.Lock()
		ms.received = append(ms.received, cmd)
		ms.mu.Unlock()

		response := ms.handler(cmd)
		if response == closeConn {
			return
		}
		if response != "" {
			io.WriteString(conn, response)
		}
	}
}

// receivedLines returns a copy of every command line the server has read.
func (ms *mockServer) receivedLines() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]string(nil), ms.received...)
}

// acceptedCount returns how many connections the server has accepted.
func (ms *mockServer) acceptedCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.accepted
}

// waitForReceived polls until the server has read n lines.
func (ms *mockServer) waitForReceived(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(ms.receivedLines()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server received %d lines, want %d", len(ms.receivedLines()), n)
}

func (ms *mockServer) stop() {
	ms.listener.Close()

	ms.mu.Lock()
	for _, conn := range ms.connections {
		conn.Close()
	}
	ms.connections = nil
	ms.mu.Unlock()

	ms.wg.Wait()
}

// defaultMockHandler answers a few read-only commands the way the firmware does.
func defaultMockHandler(cmd string) string {
	switch cmd {
	case "ping":
		return "ack\n"
	case "getVersion":
		return "2.4\n"
	case "getTitleID":
		return "0100ABF008968000\n"
	case "isProgramRunning 0100ABF008968000":
		return "1\n"
	default:
		return ""
	}
}

// echoHandler emulates a console with echoCommands enabled: replies (if
// any) come first, then the command itself.
func echoHandler(replies map[string]string) func(cmd string) string {
	return func(cmd string) string {
		return replies[cmd] + cmd + "\r\n"
	}
}
