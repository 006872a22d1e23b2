// pkg/network/protocol.go
package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// MessageType defines the type of network message
type MessageType byte

const (
	HelloRequest MessageType = iota
	HelloResponse
	DisconnectNotification
	StateFrame
	ControlCommand
	ControlResult
	PingRequest
	PingResponse
)

func (t MessageType) String() string {
	switch t {
	case HelloRequest:
		return "hello_request"
	case HelloResponse:
		return "hello_response"
	case DisconnectNotification:
		return "disconnect"
	case StateFrame:
		return "state_frame"
	case ControlCommand:
		return "control_command"
	case ControlResult:
		return "control_result"
	case PingRequest:
		return "ping_request"
	case PingResponse:
		return "ping_response"
	default:
		return fmt.Sprintf("message(%d)", byte(t))
	}
}

// MaxPayload is the largest payload the uint16 length prefix can carry
const MaxPayload = 65535

// ErrMessageTooLarge is returned when a payload does not fit in one frame
var ErrMessageTooLarge = errors.New("message too large")

// Control operations
const (
	OpPause       = "pause"
	OpResume      = "resume"
	OpStep        = "step"
	OpReset       = "reset"
	OpAddForce    = "add_force"
	OpRemoveForce = "remove_force"
	OpSelect      = "select"
	OpPick        = "pick"
)

// Entity kinds a pick can target
const (
	PickPoint = "point"
	PickLink  = "link"
	PickForce = "force"
)

// Command is a control request sent by a telemetry client
type Command struct {
	Seq   uint64           `json:"seq"`
	Op    string           `json:"op"`
	Ticks int              `json:"ticks,omitempty"`
	Point string           `json:"point,omitempty"`
	Force physics.Vector2D `json:"force"`
	Name  string           `json:"name,omitempty"`
	ID    entity.ID        `json:"id,omitempty"`
	// Points names the selection for OpSelect; empty clears it
	Points []string `json:"points,omitempty"`
	// Kind and Position describe an OpPick
	Kind     string           `json:"kind,omitempty"`
	Position physics.Vector2D `json:"position"`
}

// CommandResult answers a Command with the same Seq
type CommandResult struct {
	Seq     uint64    `json:"seq"`
	Op      string    `json:"op"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	ID      entity.ID `json:"id,omitempty"`
	Tick    uint64    `json:"tick"`
}

// Hello is sent by a client right after connecting
type Hello struct {
	ClientName string `json:"clientName"`
}

// Welcome is the server's answer to Hello
type Welcome struct {
	Success       bool    `json:"success"`
	Error         string  `json:"error,omitempty"`
	ClientID      uint64  `json:"clientID"`
	TimeStep      float64 `json:"timeStep"`
	StepsPerFrame int     `json:"stepsPerFrame"`
	FrameRate     int     `json:"frameRate"`
}

// encodeMessage frames payload as type byte, big-endian uint16 length, JSON.
// A nil payload produces an empty body.
func encodeMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", msgType, err)
		}
	}
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("%s of %d bytes: %w", msgType, len(data), ErrMessageTooLarge)
	}

	buf := make([]byte, 3+len(data))
	buf[0] = byte(msgType)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(data)))
	copy(buf[3:], data)
	return buf, nil
}

// writeMessage encodes and writes one message in a single Write call
func writeMessage(w io.Writer, msgType MessageType, payload interface{}) error {
	buf, err := encodeMessage(msgType, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// readMessage reads one framed message
func readMessage(r io.Reader) (MessageType, []byte, error) {
	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	data := make([]byte, binary.BigEndian.Uint16(header[1:3]))
	if _, err := io.ReadFull(r, data); err != nil {
		return 0, nil, err
	}
	return MessageType(header[0]), data, nil
}
