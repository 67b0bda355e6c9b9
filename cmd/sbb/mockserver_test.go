// =============================================================================
// mockserver_test.go - Mock Console for CLI Tests
// =============================================================================
//
// A loopback TCP server that behaves like a console running sys-botbase. Once
// a connection sends "configure echoCommands 1", each command's reply lines
// (if any) are followed by the command itself and sequence commands finish
// with "done". Before that, only commands that produce output reply.
//
// =============================================================================

package main

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// mockConsole is a stand-in for a console on the local network.
type mockConsole struct {
	listener net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	received []string
	memory   map[string]string

	wg sync.WaitGroup
}

// newMockConsole starts a console that is stopped when the test ends.
func newMockConsole(t *testing.T) *mockConsole {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create mock console listener: %v", err)
	}

	mc := &mockConsole{
		listener: listener,
		memory:   map[string]string{"0x4F3A0": "0A000000"},
	}

	mc.wg.Add(1)
	go mc.acceptLoop()

	t.Cleanup(mc.stop)
	return mc
}

func (mc *mockConsole) port() int {
	return mc.listener.Addr().(*net.TCPAddr).Port
}

func (mc *mockConsole) acceptLoop() {
	defer mc.wg.Done()
	for {
		conn, err := mc.listener.Accept()
		if err != nil {
			return
		}
		mc.mu.Lock()
		mc.conns = append(mc.conns, conn)
		mc.mu.Unlock()

		mc.wg.Add(1)
		go mc.serve(conn)
	}
}

func (mc *mockConsole) serve(conn net.Conn) {
	defer mc.wg.Done()
	defer conn.Close()

	echo := false
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := strings.TrimSuffix(scanner.Text(), "\r")
		if cmd == "configure echoCommands 1" {
			echo = true
		}

		mc.mu.Lock()
		mc.received = append(mc.received, cmd)
		reply, hangUp := mc.reply(cmd, echo)
		mc.mu.Unlock()

		if hangUp {
			return
		}
		io.WriteString(conn, reply)
	}
}

// reply returns what the console writes back for cmd and whether it hangs
// up instead. Must hold mc.mu.
func (mc *mockConsole) reply(cmd string, echoOn bool) (string, bool) {
	fields := strings.Fields(cmd)
	echo, done := "", ""
	if echoOn {
		echo = cmd + "\r\n"
		done = "done\n"
	}

	switch {
	case len(fields) == 0:
		return echo, false
	case cmd == "crash":
		return "", true
	case cmd == "getTitleID":
		return "0100ABF008968000\n" + echo, false
	case cmd == "getVersion":
		return "2.4\n" + echo, false
	case strings.Contains(fields[0], "Seq"):
		return echo + done, false
	case fields[0] == "peek" && len(fields) == 3:
		n, _ := strconv.Atoi(fields[2])
		data := mc.memory[fields[1]]
		if len(data) < n*2 {
			data += strings.Repeat("00", n-len(data)/2)
		}
		return data[:n*2] + "\n" + echo, false
	case fields[0] == "poke" && len(fields) == 3:
		mc.memory[fields[1]] = strings.TrimPrefix(fields[2], "0x")
		return echo, false
	default:
		return echo, false
	}
}

// receivedLines returns a copy of every command line read so far.
func (mc *mockConsole) receivedLines() []string {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]string(nil), mc.received...)
}

func (mc *mockConsole) stop() {
	mc.listener.Close()
	mc.mu.Lock()
	for _, c := range mc.conns {
		c.Close()
	}
	mc.mu.Unlock()
	mc.wg.Wait()
}

// =============================================================================
// App Harness
// =============================================================================

// appResult captures one run of the CLI.
type appResult struct {
	stdout string
	stderr string
	err    error
}

// runApp runs the CLI with an isolated config file and the given stdin.
func runApp(t *testing.T, stdin string, args ...string) appResult {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("output: text\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr strings.Builder
	app, _ := newApp(strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(append([]string{"sbb", "--config", cfgPath}, args...))
	return appResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// consoleArgs returns the flags that point the CLI at mc.
func consoleArgs(mc *mockConsole) []string {
	return []string{"--host", "127.0.0.1", "--port", strconv.Itoa(mc.port()), "--timeout", "500ms"}
}

// closedPort returns a port with nothing listening on it.
func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return strconv.Itoa(port)
}
