// pkg/network/client.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/event"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Client event types
const (
	TelemetryConnected       event.Type = "telemetry_connected"
	TelemetryLost            event.Type = "telemetry_lost"
	TelemetryReconnected     event.Type = "telemetry_reconnected"
	TelemetryReconnectFailed event.Type = "telemetry_reconnect_failed"
)

// TelemetryClient receives state frames from a TelemetryServer and sends
// control commands to it
type TelemetryClient struct {
	conn       net.Conn
	address    string
	clientName string

	connected atomic.Bool
	closing   atomic.Bool
	seq       atomic.Uint64

	frames  chan *engine.WorldState
	results chan CommandResult

	eventBus *event.Bus
	service  *NetworkService
	logger   *logging.Logger

	mu        sync.Mutex // guards conn and writes
	stateMu   sync.Mutex // guards the fields below
	welcome   Welcome
	latency   time.Duration
	lastFrame *engine.WorldState

	ctx    context.Context
	cancel context.CancelFunc

	pingInterval      time.Duration
	connectionTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
}

// NewTelemetryClient creates a client. Dials go through a circuit breaker
// configured from env; connection events are published on eventBus.
func NewTelemetryClient(env *config.EnvironmentConfig, eventBus *event.Bus, logger *logging.Logger) *TelemetryClient {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if eventBus == nil {
		eventBus = event.NewEventBus()
	}
	return &TelemetryClient{
		frames:            make(chan *engine.WorldState, 16),
		results:           make(chan CommandResult, 16),
		eventBus:          eventBus,
		service:           NewNetworkService(env, logger),
		logger:            logger.WithComponent("telemetry-client"),
		pingInterval:      5 * time.Second,
		connectionTimeout: 10 * time.Second,
		readTimeout:       env.ReadTimeout,
		writeTimeout:      env.WriteTimeout,
	}
}

// Service exposes the client's circuit breaker
func (c *TelemetryClient) Service() *NetworkService {
	return c.service
}

// Connect dials address and performs the hello exchange, retrying through
// the circuit breaker.
func (c *TelemetryClient) Connect(ctx context.Context, address, clientName string) error {
	c.address = address
	c.clientName = clientName

	err := c.service.ExecuteWithRetry(ctx, func() error {
		return c.dial(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	c.eventBus.Publish(&event.BaseEvent{EventType: TelemetryConnected, Source: c})
	return nil
}

// dial makes one connection attempt
func (c *TelemetryClient) dial(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.connectionTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(dialCtx, "tcp", c.address)
	if err != nil {
		return err
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.connected.Store(true)
	c.closing.Store(false)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.messageLoop(c.ctx, conn)
	go c.pingLoop(c.ctx)
	return nil
}

// handshake sends Hello and waits for Welcome
func (c *TelemetryClient) handshake(conn net.Conn) error {
	conn.SetDeadline(time.Now().Add(c.connectionTimeout))
	defer conn.SetDeadline(time.Time{})

	if err := writeMessage(conn, HelloRequest, Hello{ClientName: c.clientName}); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	msgType, data, err := readMessage(conn)
	if err != nil {
		return fmt.Errorf("failed to read welcome: %w", err)
	}
	if msgType != HelloResponse {
		return fmt.Errorf("unexpected response type: %s", msgType)
	}

	var welcome Welcome
	if err := json.Unmarshal(data, &welcome); err != nil {
		return fmt.Errorf("failed to parse welcome: %w", err)
	}
	if !welcome.Success {
		return fmt.Errorf("server rejected connection: %s", welcome.Error)
	}

	c.stateMu.Lock()
	c.welcome = welcome
	c.stateMu.Unlock()
	return nil
}

// Disconnect notifies the server and closes the connection
func (c *TelemetryClient) Disconnect() error {
	if !c.connected.Load() {
		return nil
	}
	c.closing.Store(true)
	c.send(DisconnectNotification, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupConnection()
	return nil
}

// cleanupConnection closes the connection. Caller holds c.mu.
func (c *TelemetryClient) cleanupConnection() {
	c.connected.Store(false)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether the client has a live connection
func (c *TelemetryClient) Connected() bool {
	return c.connected.Load()
}

// ClientID returns the ID the server assigned
func (c *TelemetryClient) ClientID() uint64 {
	return c.Welcome().ClientID
}

// Welcome returns the server's handshake answer
func (c *TelemetryClient) Welcome() Welcome {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.welcome
}

// Frames returns the channel state frames arrive on. Frames are dropped
// when nobody reads.
func (c *TelemetryClient) Frames() <-chan *engine.WorldState {
	return c.frames
}

// Results returns the channel command results arrive on
func (c *TelemetryClient) Results() <-chan CommandResult {
	return c.results
}

// LastFrame returns the most recently received state
func (c *TelemetryClient) LastFrame() *engine.WorldState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.lastFrame
}

// Latency returns the last measured round trip
func (c *TelemetryClient) Latency() time.Duration {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.latency
}

// SendCommand sends cmd and returns the sequence number its result will carry
func (c *TelemetryClient) SendCommand(cmd Command) (uint64, error) {
	cmd.Seq = c.seq.Add(1)
	if err := c.send(ControlCommand, cmd); err != nil {
		return 0, err
	}
	return cmd.Seq, nil
}

// Pause stops the server's simulation clock
func (c *TelemetryClient) Pause() (uint64, error) {
	return c.SendCommand(Command{Op: OpPause})
}

// Resume restarts the server's simulation clock
func (c *TelemetryClient) Resume() (uint64, error) {
	return c.SendCommand(Command{Op: OpResume})
}

// Step advances a paused simulation by n fixed ticks
func (c *TelemetryClient) Step(n int) (uint64, error) {
	return c.SendCommand(Command{Op: OpStep, Ticks: n})
}

// Reset rebuilds the server's scenario
func (c *TelemetryClient) Reset() (uint64, error) {
	return c.SendCommand(Command{Op: OpReset})
}

// AddForce attaches a constant force to the named point
func (c *TelemetryClient) AddForce(point string, force physics.Vector2D, name string) (uint64, error) {
	return c.SendCommand(Command{Op: OpAddForce, Point: point, Force: force, Name: name})
}

// RemoveForce deletes a constant force by ID
func (c *TelemetryClient) RemoveForce(id entity.ID) (uint64, error) {
	return c.SendCommand(Command{Op: OpRemoveForce, ID: id})
}

// Select sets the points whose centre of mass the server reports in each
// frame. No names clears the selection.
func (c *TelemetryClient) Select(points ...string) (uint64, error) {
	return c.SendCommand(Command{Op: OpSelect, Points: points})
}

// Pick asks for the ID of the entity of kind nearest pos. The ID arrives in
// the result.
func (c *TelemetryClient) Pick(kind string, pos physics.Vector2D) (uint64, error) {
	return c.SendCommand(Command{Op: OpPick, Kind: kind, Position: pos})
}

// Ping sends a timestamp the server echoes back
func (c *TelemetryClient) Ping() error {
	return c.send(PingRequest, time.Now())
}

// send writes one message under the write lock
func (c *TelemetryClient) send(msgType MessageType, payload interface{}) error {
	buf, err := encodeMessage(msgType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected.Load() || c.conn == nil {
		return ErrNotConnected
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	_, err = c.conn.Write(buf)
	return err
}

// messageLoop handles incoming messages from the server
func (c *TelemetryClient) messageLoop(ctx context.Context, conn net.Conn) {
	for {
		if c.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		msgType, data, err := readMessage(conn)
		if err != nil {
			if ctx.Err() == nil && !c.closing.Load() {
				c.handleDisconnect(err)
			}
			return
		}

		switch msgType {
		case StateFrame:
			c.handleStateFrame(data)
		case ControlResult:
			c.handleResult(data)
		case PingResponse:
			c.handlePingResponse(data)
		default:
			c.logger.Debug(ctx, "Ignoring message", "type", msgType.String())
		}
	}
}

func (c *TelemetryClient) handleStateFrame(data []byte) {
	var state engine.WorldState
	if err := json.Unmarshal(data, &state); err != nil {
		c.logger.Warn(context.Background(), "Malformed state frame", "error", err)
		return
	}

	c.stateMu.Lock()
	c.lastFrame = &state
	c.stateMu.Unlock()

	select {
	case c.frames <- &state:
	default:
	}
}

func (c *TelemetryClient) handleResult(data []byte) {
	var result CommandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return
	}
	select {
	case c.results <- result:
	default:
		c.logger.Warn(context.Background(), "Dropped command result", "seq", result.Seq, "op", result.Op)
	}
}

func (c *TelemetryClient) handlePingResponse(data []byte) {
	var sent time.Time
	if err := json.Unmarshal(data, &sent); err != nil {
		return
	}
	c.stateMu.Lock()
	c.latency = time.Since(sent)
	c.stateMu.Unlock()
}

// pingLoop keeps the connection alive and measures latency
func (c *TelemetryClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil && !errors.Is(err, ErrNotConnected) {
				c.logger.Debug(ctx, "Ping failed", "error", err)
			}
		}
	}
}

// handleDisconnect publishes the loss and reconnects through the breaker
func (c *TelemetryClient) handleDisconnect(err error) {
	c.mu.Lock()
	wasConnected := c.connected.Load()
	c.cleanupConnection()
	c.mu.Unlock()

	if !wasConnected {
		return
	}

	c.logger.Warn(context.Background(), "Telemetry connection lost", "error", err)
	c.eventBus.Publish(&event.BaseEvent{EventType: TelemetryLost, Source: c})

	go c.reconnect()
}

func (c *TelemetryClient) reconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := c.service.ExecuteWithRetry(ctx, func() error {
		return c.dial(ctx)
	})
	if err != nil {
		c.logger.Error(ctx, "Telemetry reconnect failed", err, "address", c.address)
		c.eventBus.Publish(&event.BaseEvent{EventType: TelemetryReconnectFailed, Source: c})
		return
	}
	c.eventBus.Publish(&event.BaseEvent{EventType: TelemetryReconnected, Source: c})
}
