package sbbprotocol

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"
)

// Client is a TCP client for a sys-botbase console.
//
// A Client owns at most one connection. It is created lazily by the first
// Invoke (or eagerly by Connect) and lives until Disconnect or until an
// exchange fails, after which the next Invoke dials again. NewClient never
// touches the network.
//
// Thread Safety:
// Exchanges are serialized by an internal mutex, so concurrent Invoke calls
// never interleave on the wire. Disconnect may be called from any goroutine,
// including while an Invoke is blocked reading; the blocked call then
// returns a ConnectionError.
type Client struct {
	// mu serializes exchanges. It is held for the whole of an Invoke.
	mu sync.Mutex

	endpoint Endpoint
	opts     *ClientOptions
	logger   hclog.Logger
	entropy  io.Reader

	// stateMu guards conn and reader. The pair only changes together, and
	// only once the init sequence has succeeded. pending holds a socket
	// that is still running its init sequence so Disconnect can close it.
	stateMu sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	pending net.Conn
}

// NewClient creates a client for the console at host. The port defaults to
// DefaultPort. No connection is opened until the first Invoke or Connect.
//
// Without echo mode every command must produce exactly one reply line.
// Commands the console answers with nothing (click, press, configure)
// would time out and drop the connection; enable WithEchoCommands(true)
// when sending them.
func NewClient(host string, options ...Option) *Client {
	opts := DefaultClientOptions()
	for _, o := range options {
		o(opts)
	}

	endpoint := Endpoint{Host: host, Port: opts.Port}
	return &Client{
		endpoint: endpoint,
		opts:     opts,
		logger:   opts.Logger.Named("sbbclient").With("endpoint", endpoint.String()),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Endpoint returns the console address this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// IsConnected returns true if the client currently holds an open connection.
func (c *Client) IsConnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.conn != nil
}

// Connect opens the connection and runs the init sequence. It is a no-op
// when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _, err := c.ensureConnected(ctx)
	return err
}

// Invoke sends one command and returns the console's reply.
//
// The command is passed through verbatim; only empty commands and commands
// containing line breaks are rejected. Any failure closes the connection.
// With echo mode off, Invoke waits for one reply line, so reply-less
// commands need WithEchoCommands(true).
func (c *Client) Invoke(ctx context.Context, command string) (Response, error) {
	if err := validateCommandLine(command); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, reader, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	return c.exchange(ctx, conn, reader, command)
}

// InvokeCommand is Invoke for a formatted Command.
func (c *Client) InvokeCommand(ctx context.Context, cmd Command) (Response, error) {
	return c.Invoke(ctx, cmd.Format())
}

// InvokeAll sends the commands in order and returns their replies. It stops
// at the first failure and returns the replies gathered so far.
func (c *Client) InvokeAll(ctx context.Context, commands ...string) ([]Response, error) {
	responses := make([]Response, 0, len(commands))
	for _, command := range commands {
		resp, err := c.Invoke(ctx, command)
		if err != nil {
			return responses, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Disconnect closes the connection if one is open. Calling it repeatedly,
// or after a failed Invoke, is not an error.
func (c *Client) Disconnect() error {
	c.stateMu.Lock()
	conn, pending := c.conn, c.pending
	c.conn = nil
	c.reader = nil
	c.pending = nil
	c.stateMu.Unlock()

	if pending != nil {
		_ = pending.Close()
	}
	if conn == nil {
		return nil
	}

	c.opts.Metrics.setConnected(false)
	c.logger.Debug("disconnecting")
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return NewConnectionError("close failed", err)
	}
	return nil
}

// Close implements io.Closer by calling Disconnect.
func (c *Client) Close() error {
	return c.Disconnect()
}

// Do connects, runs fn, and disconnects. The connection is released on
// every exit path of fn, including errors and panics.
func (c *Client) Do(ctx context.Context, fn func(*Client) error) (err error) {
	defer func() {
		if derr := c.Disconnect(); err == nil {
			err = derr
		}
	}()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return fn(c)
}

// ensureConnected returns the live connection, dialing one if needed.
// Must be called with c.mu held.
func (c *Client) ensureConnected(ctx context.Context) (net.Conn, *bufio.Reader, error) {
	c.stateMu.Lock()
	conn, reader := c.conn, c.reader
	c.stateMu.Unlock()
	if conn != nil {
		return conn, reader, nil
	}

	if err := c.endpoint.Validate(); err != nil {
		return nil, nil, NewConnectionError("invalid endpoint", err)
	}

	c.logger.Debug("connecting")
	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Debug("connect failed", "error", err)
		return nil, nil, NewConnectionError("failed to connect", err)
	}
	reader = bufio.NewReader(conn)

	c.stateMu.Lock()
	c.pending = conn
	c.stateMu.Unlock()

	if err := c.runInitSequence(ctx, conn, reader); err != nil {
		c.dropConn(conn)
		return nil, nil, NewConnectionError("init sequence failed", err)
	}

	c.stateMu.Lock()
	if c.pending != conn {
		// Disconnect closed it while the init sequence ran.
		c.stateMu.Unlock()
		return nil, nil, NewConnectionError("connection closed during init sequence", net.ErrClosed)
	}
	c.pending = nil
	c.conn = conn
	c.reader = reader
	c.stateMu.Unlock()
	c.opts.Metrics.setConnected(true)

	c.logger.Debug("connected")
	return conn, reader, nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := c.opts.Dialer
	if dialer == nil {
		keepAlive := KeepAlivePeriod
		if !c.opts.KeepAlive {
			keepAlive = -1
		}
		dialer = &net.Dialer{KeepAlive: keepAlive}
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", c.endpoint.String())
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set no delay failed: %w", err)
		}
	}
	return conn, nil
}

// initCommands returns the commands sent right after connecting.
func (c *Client) initCommands() []string {
	var cmds []string
	if c.opts.EchoCommands {
		cmds = append(cmds, EchoCommandsInit)
	}
	if c.opts.Debug {
		cmds = append(cmds, DebugResultCodesInit)
	}
	return append(cmds, c.opts.InitCommands...)
}

// runInitSequence sends the init commands. Without echo the console sends
// nothing back for configure-style commands, so they are only written.
func (c *Client) runInitSequence(ctx context.Context, conn net.Conn, reader *bufio.Reader) error {
	for _, command := range c.initCommands() {
		if c.opts.EchoCommands {
			if _, err := c.exchange(ctx, conn, reader, command); err != nil {
				return err
			}
			continue
		}
		if err := c.send(ctx, conn, command); err != nil {
			return err
		}
	}
	return nil
}

// send writes a command without waiting for a reply.
func (c *Client) send(ctx context.Context, conn net.Conn, command string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	stop := c.armDeadline(ctx, conn)
	defer stop()

	c.logger.Debug("sending command", "command", command, "reply", false)
	if _, err := io.WriteString(conn, command+LineTerminator); err != nil {
		return c.classify(ctx, "write command", nil, err)
	}
	return nil
}

// exchange writes one command and reads its reply. On failure the connection
// is dropped so the next call starts from a fresh one.
func (c *Client) exchange(ctx context.Context, conn net.Conn, reader *bufio.Reader, command string) (Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	logger := c.logger.With("txn", c.newTxnID())
	start := time.Now()
	resp, err := c.roundTrip(ctx, conn, reader, command, logger)
	c.opts.Metrics.observeCommand(start, err)

	if err != nil {
		logger.Debug("exchange failed", "command", command, "error", err)
		c.dropConn(conn)
		return nil, err
	}
	logger.Debug("received response", "command", command, "bytes", len(resp))
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, conn net.Conn, reader *bufio.Reader, command string, logger hclog.Logger) (Response, error) {
	stop := c.armDeadline(ctx, conn)
	defer stop()

	logger.Debug("sending command", "command", command)
	if _, err := io.WriteString(conn, command+LineTerminator); err != nil {
		return nil, c.classify(ctx, "write command", nil, err)
	}

	if !c.opts.EchoCommands {
		line, err := readLine(reader, c.opts.MaxResponseLength)
		if err != nil {
			return nil, c.classify(ctx, "read reply", line, err)
		}
		return Response(line), nil
	}

	return c.readUntilEcho(ctx, reader, command, logger)
}

// readUntilEcho collects reply lines until the console echoes the command
// back. Sequence commands keep going past the echo until "done".
func (c *Client) readUntilEcho(ctx context.Context, reader *bufio.Reader, command string, logger hclog.Logger) (Response, error) {
	sequence := strings.Contains(command, SequenceMarker)

	var lines [][]byte
	for {
		line, err := readLine(reader, c.opts.MaxResponseLength)
		if err != nil {
			return nil, c.classify(ctx, "read reply", line, err)
		}

		switch {
		case string(line) == command:
			logger.Trace("received command echo")
			if sequence {
				continue
			}
			return joinLines(lines), nil
		case sequence && string(line) == SequenceDone:
			logger.Trace("sequence finished")
			return joinLines(lines), nil
		default:
			lines = append(lines, line)
		}
	}
}

func joinLines(lines [][]byte) Response {
	if len(lines) == 0 {
		return Response{}
	}
	out := make([]byte, 0, len(lines)*16)
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l...)
	}
	return Response(out)
}

// readLine reads one reply line and strips its terminator. It fails with a
// ProtocolError once more than limit bytes arrive without a terminator.
// On I/O errors the partial line read so far is returned with the error.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice(ReplyDelimiter)
		line = append(line, chunk...)

		switch {
		case err == nil:
			line = line[:len(line)-1]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if len(line) > limit {
				return nil, newLineTooLongError(limit)
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(line) > limit {
				return nil, newLineTooLongError(limit)
			}
		default:
			return line, err
		}
	}
}

// classify maps an I/O error from an exchange onto the error kinds callers
// see: timeouts, connection errors and protocol errors.
func (c *Client) classify(ctx context.Context, op string, partial []byte, err error) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return newTimeoutError(op, ctxErr)
	}

	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		// The socket deadline can fire just before the context's own timer.
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return newTimeoutError(op, context.DeadlineExceeded)
		}
		return newTimeoutError(op, err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if len(partial) > 0 {
			return newUnterminatedError(partial)
		}
		return NewConnectionError("connection closed by peer", err)
	}

	return NewConnectionError(op+" failed", err)
}

// armDeadline applies the command timeout (or the earlier context deadline)
// to conn and forces an immediate deadline if ctx is canceled. The returned
// func must be called once the exchange is over.
func (c *Client) armDeadline(ctx context.Context, conn net.Conn) func() {
	deadline := time.Now().Add(c.opts.CommandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	return func() { stop() }
}

// wait blocks on the rate limiter, if one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.opts.Limiter == nil {
		return nil
	}
	if err := c.opts.Limiter.Wait(ctx); err != nil {
		return newTimeoutError("rate limit", err)
	}
	return nil
}

// dropConn closes conn and clears it from the client if it is still the
// current connection.
func (c *Client) dropConn(conn net.Conn) {
	c.stateMu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
		c.reader = nil
	}
	if c.pending == conn {
		c.pending = nil
	}
	c.stateMu.Unlock()

	_ = conn.Close()
	if current {
		c.opts.Metrics.setConnected(false)
	}
}

// newTxnID returns a sortable id used to correlate the log lines of one
// exchange. Must be called with c.mu held.
func (c *Client) newTxnID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), c.entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
