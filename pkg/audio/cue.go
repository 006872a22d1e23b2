// Package audio plays a short touchdown chirp whenever a point hits the
// ground.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/arda-guler/SloshTVC/pkg/event"
	"github.com/arda-guler/SloshTVC/pkg/logging"
)

const (
	sampleRate = beep.SampleRate(44100)

	chirpDuration = 120 * time.Millisecond
	chirpAttack   = 5 * time.Millisecond
	chirpRelease  = 80 * time.Millisecond

	// impacts slower than MinSpeed are a resting rocket settling
	MinSpeed = 0.5
	// impacts at FullSpeed or faster play at full volume
	FullSpeed = 20.0
	// DefaultInterval is the minimum spacing between chirps
	DefaultInterval = 150 * time.Millisecond
)

// ErrDisabled is returned by Trigger once the output failed to open
var ErrDisabled = errors.New("audio cue disabled")

// Player receives finished streamers. The speaker is the production player.
type Player interface {
	Play(s beep.Streamer)
}

// speakerPlayer feeds a mixer attached to the system speaker
type speakerPlayer struct {
	mixer *beep.Mixer
}

func openSpeaker() (*speakerPlayer, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return nil, err
	}
	p := &speakerPlayer{mixer: &beep.Mixer{}}
	speaker.Play(p.mixer)
	return p, nil
}

func (p *speakerPlayer) Play(s beep.Streamer) {
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Cue turns ground contact events into chirps
type Cue struct {
	mu       sync.Mutex
	player   Player
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time
	last     time.Time
	disabled bool

	bus *event.Bus
	sub *event.Subscription

	played  uint64
	dropped uint64
}

// Option configures a Cue
type Option func(*Cue)

// WithPlayer replaces the system speaker
func WithPlayer(p Player) Option {
	return func(c *Cue) { c.player = p }
}

// WithInterval sets the minimum spacing between chirps
func WithInterval(d time.Duration) Option {
	return func(c *Cue) { c.interval = d }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Cue) { c.logger = l }
}

// NewCue creates a cue. Without WithPlayer it opens the system speaker; if
// that fails the error is logged and the cue stays silent.
func NewCue(opts ...Option) *Cue {
	c := &Cue{interval: DefaultInterval, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogger()
	}
	c.logger = c.logger.WithComponent("audio")

	if c.player == nil {
		p, err := openSpeaker()
		if err != nil {
			c.logger.Warn(context.Background(), "audio output unavailable, touchdown cue disabled",
				"error", err.Error())
			c.disabled = true
		} else {
			c.player = p
		}
	}
	return c
}

// Enabled reports whether chirps can be played
func (c *Cue) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled
}

// Attach subscribes the cue to ground contacts on bus, replacing any earlier
// subscription.
func (c *Cue) Attach(bus *event.Bus) {
	c.Detach()
	sub := bus.Subscribe(event.GroundContact, c.handle)

	c.mu.Lock()
	c.bus, c.sub = bus, sub
	c.mu.Unlock()
}

// Detach drops the subscription
func (c *Cue) Detach() {
	c.mu.Lock()
	bus, sub := c.bus, c.sub
	c.bus, c.sub = nil, nil
	c.mu.Unlock()

	if bus != nil && sub != nil {
		bus.Unsubscribe(sub)
	}
}

func (c *Cue) handle(e event.Event) {
	ce, ok := e.(*event.ContactEvent)
	if !ok {
		return
	}
	if _, err := c.Trigger(ce.Speed); err != nil && !errors.Is(err, ErrDisabled) {
		c.logger.Error(context.Background(), "touchdown cue failed", err, "point", ce.PointID)
	}
}

// Trigger plays a chirp for an impact at speed. It reports whether a chirp
// was started; slow impacts and impacts inside the rate limit are skipped.
func (c *Cue) Trigger(speed float64) (bool, error) {
	speed = math.Abs(speed)

	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return false, ErrDisabled
	}
	if speed < MinSpeed || math.IsNaN(speed) {
		c.mu.Unlock()
		return false, nil
	}
	now := c.now()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		c.dropped++
		c.mu.Unlock()
		return false, nil
	}
	c.last = now
	c.played++
	player := c.player
	c.mu.Unlock()

	s, err := Chirp(Volume(speed))
	if err != nil {
		return false, fmt.Errorf("build chirp: %w", err)
	}
	player.Play(s)
	return true, nil
}

// Stats returns how many chirps were played and rate limited
func (c *Cue) Stats() (played, dropped uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.played, c.dropped
}

// Close detaches the cue and silences it
func (c *Cue) Close() {
	c.Detach()
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
}

// Volume maps an impact speed to a linear gain in [0.1, 1]
func Volume(speed float64) float64 {
	v := math.Abs(speed) / FullSpeed
	switch {
	case v > 1:
		return 1
	case v < 0.1:
		return 0.1
	}
	return v
}

// Chirp builds a short enveloped two-tone beep at linear gain vol
func Chirp(vol float64) (beep.Streamer, error) {
	high, err := generators.SineTone(sampleRate, 880)
	if err != nil {
		return nil, err
	}
	low, err := generators.SineTone(sampleRate, 440)
	if err != nil {
		return nil, err
	}
	half := sampleRate.N(chirpDuration / 2)
	tone := beep.Seq(beep.Take(half, high), beep.Take(half, low))

	return gain(newEnvelope(tone, 2*half, sampleRate.N(chirpAttack), sampleRate.N(chirpRelease)), vol), nil
}

// gain applies a linear volume; effects.Volume works in log2 units
func gain(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// envelope ramps a stream in over attack samples and out over release samples
type envelope struct {
	streamer beep.Streamer
	position int
	total    int
	attack   int
	release  int
}

func newEnvelope(s beep.Streamer, total, attack, release int) beep.Streamer {
	return &envelope{streamer: s, total: total, attack: attack, release: release}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if e.position >= e.total {
			return i, false
		}
		vol := 1.0
		if e.attack > 0 && e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if remaining := e.total - e.position; e.release > 0 && remaining < e.release {
			vol = math.Min(vol, float64(remaining)/float64(e.release))
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }
