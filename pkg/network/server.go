// pkg/network/server.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
	"github.com/arda-guler/SloshTVC/pkg/resource"
	"github.com/arda-guler/SloshTVC/pkg/validation"
)

// outboxSize is how many frames may queue for a slow client before new
// frames are dropped for it
const outboxSize = 8

// TelemetryServer steps a world on a wall-clock frame timer and streams
// WorldState frames to every connected client. Clients may send control
// commands back.
type TelemetryServer struct {
	world      *engine.World
	supervisor *resource.Supervisor
	validator  *validation.MessageValidator
	logger     *logging.Logger

	listener     net.Listener
	clients      map[uint64]*Client
	clientsLock  sync.RWMutex
	nextClientID uint64

	running       atomic.Bool
	stopped       atomic.Bool
	frames        atomic.Uint64
	lastFrame     atomic.Int64 // unix nanos
	stepsPerFrame int
	frameRate     int
	frameInterval time.Duration
	maxClients    int
	readTimeout   time.Duration
	writeTimeout  time.Duration
}

// Client represents a connected telemetry client
type Client struct {
	ID        uint64
	Name      string
	Conn      net.Conn
	Connected atomic.Bool
	LastInput time.Time

	outbox chan []byte
	once   sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		c.Connected.Store(false)
		close(c.outbox)
		c.Conn.Close()
	})
}

// NewTelemetryServer creates a server for world. Goroutines are started
// through supervisor so Shutdown on it stops the server's loops.
func NewTelemetryServer(world *engine.World, cfg *config.SimConfig, env *config.EnvironmentConfig,
	supervisor *resource.Supervisor, logger *logging.Logger,
) *TelemetryServer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	frameRate := cfg.Runner.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}
	steps := cfg.Runner.StepsPerFrame
	if steps <= 0 {
		steps = 1
	}
	return &TelemetryServer{
		world:         world,
		supervisor:    supervisor,
		validator:     validation.NewMessageValidator(),
		logger:        logger.WithComponent("telemetry-server"),
		clients:       make(map[uint64]*Client),
		stepsPerFrame: steps,
		frameRate:     frameRate,
		frameInterval: time.Second / time.Duration(frameRate),
		maxClients:    env.MaxClients,
		readTimeout:   env.ReadTimeout,
		writeTimeout:  env.WriteTimeout,
	}
}

// Start listens on address and starts the accept and frame loops
func (s *TelemetryServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start telemetry server: %w", err)
	}
	return s.Serve(listener)
}

// Serve starts the server on an existing listener. A stopped server cannot
// be started again.
func (s *TelemetryServer) Serve(listener net.Listener) error {
	if s.stopped.Load() {
		listener.Close()
		return errors.New("telemetry server stopped")
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("telemetry server already running")
	}
	s.clientsLock.Lock()
	s.listener = listener
	s.clientsLock.Unlock()

	if err := s.supervisor.StartGoroutine("telemetry-accept", s.acceptConnections); err != nil {
		s.running.Store(false)
		listener.Close()
		return err
	}
	if err := s.supervisor.StartGoroutine("telemetry-frames", s.frameLoop); err != nil {
		s.Stop()
		return err
	}

	s.logger.Info(context.Background(), "Telemetry server started",
		"address", listener.Addr().String(),
		"frame_rate", s.frameRate,
		"steps_per_frame", s.stepsPerFrame,
	)
	return nil
}

// Stop closes the listener and every client connection
func (s *TelemetryServer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.stopped.Store(true)

	s.clientsLock.Lock()
	for id, client := range s.clients {
		client.close()
		delete(s.clients, id)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.clientsLock.Unlock()

	s.logger.Info(context.Background(), "Telemetry server stopped", "frames", s.frames.Load())
}

// Running reports whether the server is accepting clients
func (s *TelemetryServer) Running() bool {
	return s.running.Load()
}

// Address returns the listener address, or "" when not listening
func (s *TelemetryServer) Address() string {
	if !s.running.Load() {
		return ""
	}
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ClientCount returns the number of connected clients
func (s *TelemetryServer) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

// FramesSent returns the number of frames broadcast so far
func (s *TelemetryServer) FramesSent() uint64 {
	return s.frames.Load()
}

// LastFrame returns when the frame loop last ran
func (s *TelemetryServer) LastFrame() time.Time {
	n := s.lastFrame.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// acceptConnections accepts new client connections
func (s *TelemetryServer) acceptConnections(ctx context.Context) {
	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.logger.Warn(ctx, "Error accepting connection", "error", err)
				continue
			}
			return
		}

		if s.maxClients > 0 && s.ClientCount() >= s.maxClients {
			s.logger.Warn(ctx, "Rejecting connection, server full", "remote", conn.RemoteAddr().String())
			s.reject(conn, "server full")
			continue
		}

		if err := s.supervisor.StartGoroutine("telemetry-client", func(ctx context.Context) {
			s.handleConnection(ctx, conn)
		}); err != nil {
			s.reject(conn, err.Error())
		}
	}
}

func (s *TelemetryServer) reject(conn net.Conn, reason string) {
	if s.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	writeMessage(conn, HelloResponse, Welcome{Success: false, Error: reason})
	conn.Close()
}

// handleConnection performs the hello exchange then serves the client
func (s *TelemetryServer) handleConnection(ctx context.Context, conn net.Conn) {
	ctx = logging.WithFields(ctx, "remote", conn.RemoteAddr().String())

	if s.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	msgType, data, err := readMessage(conn)
	if err != nil {
		s.logger.Warn(ctx, "Error reading hello", "error", err)
		conn.Close()
		return
	}
	if msgType != HelloRequest {
		s.logger.Warn(ctx, "Expected hello", "got", msgType.String())
		conn.Close()
		return
	}

	var hello Hello
	if err := json.Unmarshal(data, &hello); err != nil {
		s.reject(conn, "malformed hello")
		return
	}

	client := &Client{
		ID:        atomic.AddUint64(&s.nextClientID, 1),
		Name:      hello.ClientName,
		Conn:      conn,
		LastInput: time.Now(),
		outbox:    make(chan []byte, outboxSize),
	}
	client.Connected.Store(true)
	ctx = logging.WithClient(ctx, client.ID, client.Name)

	welcome, err := encodeMessage(HelloResponse, Welcome{
		Success:       true,
		ClientID:      client.ID,
		TimeStep:      s.world.TimeStep(),
		StepsPerFrame: s.stepsPerFrame,
		FrameRate:     s.frameRate,
	})
	if err != nil {
		conn.Close()
		return
	}
	client.outbox <- welcome

	s.clientsLock.Lock()
	if !s.running.Load() {
		s.clientsLock.Unlock()
		conn.Close()
		return
	}
	s.clients[client.ID] = client
	s.clientsLock.Unlock()

	s.logger.Info(ctx, "Telemetry client connected")

	if err := s.supervisor.StartGoroutine("telemetry-writer", func(context.Context) {
		s.writeLoop(client)
	}); err != nil {
		s.removeClient(ctx, client)
		return
	}
	s.handleClientMessages(ctx, client)
	s.removeClient(ctx, client)
}

// writeLoop drains the client's outbox until it is closed
func (s *TelemetryServer) writeLoop(client *Client) {
	for buf := range client.outbox {
		if s.writeTimeout > 0 {
			client.Conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		if _, err := client.Conn.Write(buf); err != nil {
			client.Conn.Close()
			for range client.outbox {
			}
			return
		}
	}
}

// enqueue hands buf to the client's writer. Frames are dropped when the
// outbox is full; the next frame supersedes them anyway.
func (s *TelemetryServer) enqueue(client *Client, buf []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case client.outbox <- buf:
		return true
	default:
		return false
	}
}

// handleClientMessages processes messages from a connected client
func (s *TelemetryServer) handleClientMessages(ctx context.Context, client *Client) {
	for client.Connected.Load() && s.running.Load() {
		if s.readTimeout > 0 {
			client.Conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		msgType, data, err := readMessage(client.Conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && client.Connected.Load() {
				s.logger.Debug(ctx, "Error reading from client", "error", err)
			}
			return
		}
		client.LastInput = time.Now()

		switch msgType {
		case ControlCommand:
			s.handleCommand(ctx, client, data)

		case PingRequest:
			if err := s.validator.ValidateMessage(data, client.ID); err != nil {
				s.logger.Warn(ctx, "Rejected ping", "error", err)
				continue
			}
			if buf, err := encodeMessage(PingResponse, json.RawMessage(data)); err == nil {
				s.enqueue(client, buf)
			}

		case DisconnectNotification:
			s.logger.Info(ctx, "Client disconnecting")
			return

		default:
			s.logger.Warn(ctx, "Unknown message type", "type", msgType.String())
		}
	}
}

// handleCommand validates and applies one control command
func (s *TelemetryServer) handleCommand(ctx context.Context, client *Client, data []byte) {
	var cmd Command
	result := CommandResult{}

	if err := s.validator.ValidateMessage(data, client.ID); err != nil {
		result.Error = err.Error()
	} else if err := json.Unmarshal(data, &cmd); err != nil {
		result.Error = fmt.Sprintf("malformed command: %v", err)
	} else {
		result = s.applyCommand(cmd)
	}
	result.Seq = cmd.Seq
	result.Op = cmd.Op
	result.Tick = s.world.Tick()

	if !result.Success {
		s.logger.Warn(ctx, "Control command failed", "op", cmd.Op, "error", result.Error)
	} else {
		s.logger.Debug(ctx, "Control command applied", "op", cmd.Op)
	}

	if buf, err := encodeMessage(ControlResult, result); err == nil {
		s.enqueue(client, buf)
	}
}

// applyCommand runs cmd against the world
func (s *TelemetryServer) applyCommand(cmd Command) CommandResult {
	fail := func(err error) CommandResult {
		return CommandResult{Error: err.Error()}
	}

	switch cmd.Op {
	case OpPause:
		s.world.SetRunning(false)
	case OpResume:
		s.world.SetRunning(true)
	case OpStep:
		n := cmd.Ticks
		if n == 0 {
			n = 1
		}
		if err := validation.ValidateStepCount(n); err != nil {
			return fail(err)
		}
		for i := 0; i < n; i++ {
			s.world.StepOnce()
		}
	case OpReset:
		if err := s.world.Reset(); err != nil {
			return fail(err)
		}
	case OpAddForce:
		if err := validation.ValidateForce(cmd.Force); err != nil {
			return fail(err)
		}
		point, err := s.world.FindPoint(cmd.Point)
		if err != nil {
			return fail(err)
		}
		id, err := s.world.AddConstantForce(point, cmd.Force, cmd.Name)
		if err != nil {
			return fail(err)
		}
		return CommandResult{Success: true, ID: id}
	case OpRemoveForce:
		if err := s.world.RemoveForce(cmd.ID); err != nil {
			return fail(err)
		}
	case OpSelect:
		ids := make([]entity.ID, 0, len(cmd.Points))
		for _, name := range cmd.Points {
			id, err := s.world.FindPoint(name)
			if err != nil {
				return fail(err)
			}
			ids = append(ids, id)
		}
		if err := s.world.SetSelection(ids); err != nil {
			return fail(err)
		}
	case OpPick:
		id, err := s.pick(cmd.Kind, cmd.Position)
		if err != nil {
			return fail(err)
		}
		return CommandResult{Success: true, ID: id}
	default:
		return fail(fmt.Errorf("unknown op %q", cmd.Op))
	}
	return CommandResult{Success: true}
}

// pick finds the entity of kind nearest pos
func (s *TelemetryServer) pick(kind string, pos physics.Vector2D) (entity.ID, error) {
	if err := validation.ValidateVector("position", pos); err != nil {
		return 0, err
	}
	switch kind {
	case PickPoint, "":
		return s.world.ClosestPoint(pos)
	case PickLink:
		return s.world.ClosestLink(pos)
	case PickForce:
		return s.world.ClosestForce(pos)
	}
	return 0, fmt.Errorf("unknown pick kind %q", kind)
}

// removeClient removes a client from the server
func (s *TelemetryServer) removeClient(ctx context.Context, client *Client) {
	s.clientsLock.Lock()
	_, present := s.clients[client.ID]
	delete(s.clients, client.ID)
	s.clientsLock.Unlock()

	client.close()
	s.validator.Forget(client.ID)

	if present {
		s.logger.Info(ctx, "Telemetry client removed")
	}
}

// frameLoop advances the world and broadcasts a frame at the frame rate
func (s *TelemetryServer) frameLoop(ctx context.Context) {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-ticker.C:
			if !s.running.Load() {
				return
			}
			s.runFrame(ctx)
		}
	}
}

// runFrame steps the world once per frame and sends the resulting state
func (s *TelemetryServer) runFrame(ctx context.Context) {
	s.world.StepN(s.stepsPerFrame)
	s.lastFrame.Store(time.Now().UnixNano())

	if s.ClientCount() == 0 {
		return
	}
	s.broadcastState(ctx)
}

// broadcastState sends the current world state to all clients
func (s *TelemetryServer) broadcastState(ctx context.Context) {
	buf, err := encodeMessage(StateFrame, s.world.Snapshot())
	if err != nil {
		s.logger.Error(ctx, "Failed to encode state frame", err)
		return
	}
	s.frames.Add(1)

	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	for _, client := range s.clients {
		if client.Connected.Load() && !s.enqueue(client, buf) {
			s.logger.Debug(ctx, "Dropped frame for slow client", "client_id", client.ID)
		}
	}
}
