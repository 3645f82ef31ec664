package tour

import "fmt"

// PlayerState is the playback state of a Player.
type PlayerState int

// Player states. A player is either stopped at an index or playing at an
// index with elapsed time accumulating.
const (
	PlayerStopped PlayerState = iota
	PlayerPlaying
)

// DefaultTickIntervalMs is the recommended fixed tick interval for drivers.
const DefaultTickIntervalMs = 100

// Player is the read-only playback state machine over an ordered step
// sequence. It is single-threaded cooperative: the caller owns a repeating
// timer and feeds Tick at a fixed interval while playing. The timer must be
// cancelled on pause/stop/teardown so stale ticks cannot advance the state.
type Player struct {
	steps     []Step
	state     PlayerState
	index     int
	elapsedMs int
}

// NewPlayer creates a player stopped at the first step.
func NewPlayer(steps []Step) *Player {
	s := make([]Step, len(steps))
	copy(s, steps)
	return &Player{steps: s, state: PlayerStopped}
}

// Play starts playback at the current index. If the previous cycle completed
// (elapsed pinned at the step's full duration), elapsed resets to zero so the
// step replays from its start; a pause mid-step resumes from the frozen
// elapsed value.
func (p *Player) Play() {
	if len(p.steps) == 0 || p.state == PlayerPlaying {
		return
	}
	if p.elapsedMs >= p.steps[p.index].DurationMs {
		p.elapsedMs = 0
	}
	p.state = PlayerPlaying
}

// Pause freezes elapsed at its current value.
func (p *Player) Pause() {
	p.state = PlayerStopped
}

// Tick advances elapsed by the given interval while playing. When elapsed
// reaches the current step's duration the player advances to the next step
// with elapsed reset, unless this is the last step, in which case it stops at
// the same index with elapsed pinned at the full duration. The tour does not
// wrap back to the first step; the caller may replay.
func (p *Player) Tick(intervalMs int) {
	if p.state != PlayerPlaying || intervalMs <= 0 {
		return
	}

	p.elapsedMs += intervalMs
	duration := p.steps[p.index].DurationMs
	if p.elapsedMs < duration {
		return
	}

	if p.index == len(p.steps)-1 {
		p.elapsedMs = duration
		p.state = PlayerStopped
		return
	}

	p.index++
	p.elapsedMs = 0
}

// Seek jumps to the target step, resets elapsed, and stops playback. Targets
// outside [0, len(steps)) are rejected without changing state.
func (p *Player) Seek(targetIndex int) error {
	if targetIndex < 0 || targetIndex >= len(p.steps) {
		return fmt.Errorf("seek: index %d out of range [0,%d)", targetIndex, len(p.steps))
	}
	p.index = targetIndex
	p.elapsedMs = 0
	p.state = PlayerStopped
	return nil
}

// Restart forces the player back to the first step, stopped.
func (p *Player) Restart() {
	p.index = 0
	p.elapsedMs = 0
	p.state = PlayerStopped
}

// Progress returns the fraction of the current step already played, clamped
// to [0,1].
func (p *Player) Progress() float64 {
	if len(p.steps) == 0 {
		return 0
	}
	duration := p.steps[p.index].DurationMs
	if duration <= 0 {
		return 0
	}
	f := float64(p.elapsedMs) / float64(duration)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// TransitionVariant returns the visual transition for the current step,
// defaulting to fade for anything unrecognized or when there are no steps.
func (p *Player) TransitionVariant() Transition {
	if len(p.steps) == 0 {
		return TransitionFade
	}
	return ParseTransition(string(p.steps[p.index].Transition))
}

// State returns the current playback state.
func (p *Player) State() PlayerState { return p.state }

// Index returns the current step index.
func (p *Player) Index() int { return p.index }

// ElapsedMs returns the elapsed time within the current step.
func (p *Player) ElapsedMs() int { return p.elapsedMs }

// CurrentStep returns the step at the current index, or false if the tour is
// empty.
func (p *Player) CurrentStep() (Step, bool) {
	if len(p.steps) == 0 {
		return Step{}, false
	}
	return p.steps[p.index], true
}
