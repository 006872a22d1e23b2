package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/event"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/physics"
	"github.com/arda-guler/SloshTVC/pkg/resource"
)

func quietLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(io.Discard)
}

func testEnv() *config.EnvironmentConfig {
	env := config.DefaultEnvironmentConfig()
	env.ReadTimeout = 5 * time.Second
	env.WriteTimeout = 5 * time.Second
	env.ShutdownTimeout = 2 * time.Second
	return env
}

type testRig struct {
	world      *engine.World
	server     *TelemetryServer
	supervisor *resource.Supervisor
	env        *config.EnvironmentConfig
}

func startServer(t *testing.T, maxClients int) *testRig {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Runner.FrameRate = 100
	cfg.Runner.StepsPerFrame = 2
	world, err := engine.NewWorld(cfg,
		engine.WithLogger(quietLogger()),
		engine.WithScenario(engine.NewRocketScenario(cfg.Rocket)),
	)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	env := testEnv()
	env.MaxClients = maxClients
	sup := resource.NewSupervisor(env, quietLogger())
	server := NewTelemetryServer(world, cfg, env, sup, quietLogger())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := server.Serve(listener); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	rig := &testRig{world: world, server: server, supervisor: sup, env: env}
	t.Cleanup(func() {
		server.Stop()
		if err := sup.Shutdown(context.Background()); err != nil {
			t.Errorf("supervisor shutdown: %v", err)
		}
	})
	return rig
}

func (r *testRig) connect(t *testing.T, name string) *TelemetryClient {
	t.Helper()
	c := NewTelemetryClient(r.env, event.NewEventBus(), quietLogger())
	c.Service().SetRetryPolicy(1, time.Millisecond)
	if err := c.Connect(context.Background(), r.server.Address(), name); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func waitResult(t *testing.T, c *TelemetryClient, seq uint64) CommandResult {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r := <-c.Results():
			if r.Seq == seq {
				return r
			}
		case <-timeout:
			t.Fatalf("no result for command %d", seq)
			return CommandResult{}
		}
	}
}

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	cmd := Command{Seq: 7, Op: OpAddForce, Point: "p15", Force: physics.Vector2D{X: 10}}
	if err := writeMessage(&buf, ControlCommand, cmd); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}

	raw := buf.Bytes()
	if raw[0] != byte(ControlCommand) {
		t.Errorf("type byte = %d", raw[0])
	}
	if n := int(raw[1])<<8 | int(raw[2]); n != len(raw)-3 {
		t.Errorf("length prefix = %d, body = %d", n, len(raw)-3)
	}

	msgType, data, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	var got Command
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msgType != ControlCommand || !reflect.DeepEqual(got, cmd) {
		t.Errorf("got %s %+v, want %+v", msgType, got, cmd)
	}
}

func TestMessageFraming_EmptyAndOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMessage(&buf, DisconnectNotification, nil); err != nil {
		t.Fatalf("writeMessage: %v", err)
	}
	if buf.Len() != 3 {
		t.Errorf("empty message is %d bytes, want 3", buf.Len())
	}

	big := strings.Repeat("x", MaxPayload)
	if err := writeMessage(&buf, ControlCommand, big); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized payload error = %v", err)
	}
}

func TestReadMessage_Truncated(t *testing.T) {
	r := bytes.NewReader([]byte{byte(StateFrame), 0, 10, '{'})
	if _, _, err := readMessage(r); err == nil {
		t.Error("expected error for truncated body")
	}
}

func TestTelemetryServer_StreamsFrames(t *testing.T) {
	rig := startServer(t, 4)
	c := rig.connect(t, "observer")

	if c.ClientID() == 0 {
		t.Error("client ID not assigned")
	}
	if w := c.Welcome(); w.StepsPerFrame != 2 || w.FrameRate != 100 || w.TimeStep != 0.001 {
		t.Errorf("welcome = %+v", w)
	}

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case state := <-c.Frames():
			if len(state.Points) != 19 || len(state.Links) != 49 || len(state.Thrusters) != 1 {
				t.Fatalf("frame has %d points, %d links, %d thrusters",
					len(state.Points), len(state.Links), len(state.Thrusters))
			}
			if i > 0 && state.Tick <= last {
				t.Errorf("tick did not advance: %d after %d", state.Tick, last)
			}
			last = state.Tick
		case <-time.After(2 * time.Second):
			t.Fatal("no state frame received")
		}
	}

	if rig.server.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", rig.server.ClientCount())
	}
	if rig.server.FramesSent() == 0 {
		t.Error("FramesSent() = 0")
	}
	if c.LastFrame() == nil {
		t.Error("LastFrame() = nil")
	}
}

func TestTelemetryServer_Commands(t *testing.T) {
	rig := startServer(t, 4)
	c := rig.connect(t, "controller")

	seq, err := c.Pause()
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if r := waitResult(t, c, seq); !r.Success || r.Op != OpPause {
		t.Fatalf("pause result = %+v", r)
	}
	if rig.world.Running() {
		t.Error("world still running after pause")
	}

	before := rig.world.SimTime()
	seq, _ = c.Step(5)
	if r := waitResult(t, c, seq); !r.Success {
		t.Fatalf("step result = %+v", r)
	}
	if got := rig.world.SimTime() - before; got < 0.005-1e-12 || got > 0.005+1e-12 {
		t.Errorf("five steps advanced %g s, want 0.005", got)
	}

	seq, _ = c.AddForce("p15", physics.Vector2D{X: 500}, "gust")
	r := waitResult(t, c, seq)
	if !r.Success || r.ID == 0 {
		t.Fatalf("add_force result = %+v", r)
	}
	if rig.world.Counts().Forces != 1 {
		t.Errorf("forces = %d, want 1", rig.world.Counts().Forces)
	}

	seq, _ = c.RemoveForce(r.ID)
	if r := waitResult(t, c, seq); !r.Success {
		t.Errorf("remove_force result = %+v", r)
	}
	if rig.world.Counts().Forces != 0 {
		t.Errorf("forces after removal = %d", rig.world.Counts().Forces)
	}

	seq, _ = c.Resume()
	if r := waitResult(t, c, seq); !r.Success {
		t.Errorf("resume result = %+v", r)
	}
	if !rig.world.Running() {
		t.Error("world not running after resume")
	}

	seq, _ = c.Reset()
	if r := waitResult(t, c, seq); !r.Success {
		t.Errorf("reset result = %+v", r)
	}
}

func TestTelemetryServer_SelectAndPick(t *testing.T) {
	rig := startServer(t, 4)
	c := rig.connect(t, "picker")

	seq, _ := c.Pause()
	waitResult(t, c, seq)

	seq, _ = c.Select("p10", "p15")
	if r := waitResult(t, c, seq); !r.Success {
		t.Fatalf("select result = %+v", r)
	}
	if sel := rig.world.Selection(); len(sel) != 2 {
		t.Fatalf("Selection() = %v, want two points", sel)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if f := c.LastFrame(); f != nil && f.CenterOfMass != nil && len(f.Selection) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame carried the selection's center of mass")
		}
		time.Sleep(5 * time.Millisecond)
	}

	tip, err := rig.world.FindPoint("p15")
	if err != nil {
		t.Fatalf("FindPoint: %v", err)
	}
	tipState, _ := rig.world.Point(tip)
	seq, _ = c.Pick(PickPoint, tipState.Position)
	if r := waitResult(t, c, seq); !r.Success || r.ID != tip {
		t.Errorf("pick point result = %+v, want id %d", r, tip)
	}

	link := rig.world.Snapshot().Links[0]
	mid := link.From.Add(link.To).Scale(0.5)
	seq, _ = c.Pick(PickLink, mid)
	r := waitResult(t, c, seq)
	if !r.Success {
		t.Fatalf("pick link result = %+v", r)
	}
	picked, err := rig.world.Link(r.ID)
	if err != nil {
		t.Fatalf("picked link: %v", err)
	}
	if d := picked.From.Add(picked.To).Scale(0.5).Sub(mid).Length(); d > 1e-9 {
		t.Errorf("picked link midpoint is %g from the query", d)
	}

	seq, _ = c.AddForce("p15", physics.Vector2D{X: 100}, "push")
	force := waitResult(t, c, seq).ID
	fs, _ := rig.world.Force(force)
	seq, _ = c.Pick(PickForce, fs.Tip)
	if r := waitResult(t, c, seq); !r.Success || r.ID != force {
		t.Errorf("pick force result = %+v, want id %d", r, force)
	}

	seq, _ = c.Select()
	if r := waitResult(t, c, seq); !r.Success {
		t.Fatalf("clear selection result = %+v", r)
	}
	if sel := rig.world.Selection(); len(sel) != 0 {
		t.Errorf("Selection() = %v after clearing", sel)
	}
}

func TestTelemetryServer_RejectsBadCommands(t *testing.T) {
	rig := startServer(t, 4)
	c := rig.connect(t, "clumsy")

	tests := []struct {
		name string
		cmd  Command
	}{
		{"unknown op", Command{Op: "launch"}},
		{"negative steps", Command{Op: OpStep, Ticks: -1}},
		{"missing point", Command{Op: OpAddForce, Point: "nope", Force: physics.Vector2D{X: 1}}},
		{"huge force", Command{Op: OpAddForce, Point: "p15", Force: physics.Vector2D{X: 1e12}}},
		{"unknown force", Command{Op: OpRemoveForce, ID: 9999}},
		{"unknown selection point", Command{Op: OpSelect, Points: []string{"p15", "nope"}}},
		{"unknown pick kind", Command{Op: OpPick, Kind: "thruster"}},
		{"pick force with none applied", Command{Op: OpPick, Kind: PickForce}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := c.SendCommand(tt.cmd)
			if err != nil {
				t.Fatalf("SendCommand: %v", err)
			}
			r := waitResult(t, c, seq)
			if r.Success || r.Error == "" {
				t.Errorf("result = %+v, want failure", r)
			}
		})
	}
}

func TestTelemetryServer_Ping(t *testing.T) {
	rig := startServer(t, 4)
	c := rig.connect(t, "pinger")

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.Latency() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Latency() == 0 {
		t.Error("latency never measured")
	}
}

func TestTelemetryServer_MaxClients(t *testing.T) {
	rig := startServer(t, 1)
	rig.connect(t, "first")

	deadline := time.Now().Add(time.Second)
	for rig.server.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	second := NewTelemetryClient(rig.env, nil, quietLogger())
	second.Service().SetRetryPolicy(1, time.Millisecond)
	err := second.Connect(context.Background(), rig.server.Address(), "second")
	if err == nil || !strings.Contains(err.Error(), "server full") {
		t.Errorf("second Connect error = %v, want server full", err)
	}
}

func TestTelemetryServer_DisconnectRemovesClient(t *testing.T) {
	rig := startServer(t, 4)

	c := NewTelemetryClient(rig.env, nil, quietLogger())
	c.Service().SetRetryPolicy(1, time.Millisecond)
	if err := c.Connect(context.Background(), rig.server.Address(), "brief"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.Connected() {
		t.Error("client still reports connected")
	}
	if _, err := c.Pause(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Pause after disconnect = %v, want ErrNotConnected", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rig.server.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rig.server.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after disconnect", rig.server.ClientCount())
	}
}

func TestTelemetryServer_StopClearsAddress(t *testing.T) {
	rig := startServer(t, 4)
	if rig.server.Address() == "" {
		t.Fatal("Address() empty while running")
	}
	rig.server.Stop()
	if rig.server.Address() != "" || rig.server.Running() {
		t.Error("server still reports running after Stop")
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := rig.server.Serve(l); err == nil {
		t.Error("a stopped server should not serve again")
	}
}
