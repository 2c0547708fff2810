package pipeline

import (
	"context"
	"fmt"

	"github.com/kikiluvv/autoclip/internal/journal"
	"github.com/rs/zerolog"
)

// State is the progress of one perspective branch
type State string

const (
	ScriptPending State = "SCRIPT_PENDING"
	ScriptReady   State = "SCRIPT_READY"
	RenderPending State = "RENDER_PENDING"
	RenderReady   State = "RENDER_READY"
	ConcatPending State = "CONCAT_PENDING"
	Done          State = "DONE"
	Failed        State = "FAILED"
)

var next = map[State]State{
	ScriptPending: ScriptReady,
	ScriptReady:   RenderPending,
	RenderPending: RenderReady,
	RenderReady:   ConcatPending,
	ConcatPending: Done,
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// machine tracks one perspective and mirrors every transition into the journal
type machine struct {
	logger      zerolog.Logger
	recorder    journal.Recorder
	runID       string
	perspective string
	state       State
}

func newMachine(ctx context.Context, logger zerolog.Logger, rec journal.Recorder, runID, perspective string) *machine {
	m := &machine{
		logger:      logger.With().Str("perspective", perspective).Logger(),
		recorder:    rec,
		runID:       runID,
		perspective: perspective,
		state:       ScriptPending,
	}
	m.record(ctx, "")
	return m
}

// advance moves to the next state in the chain
func (m *machine) advance(ctx context.Context, detail string) {
	to, ok := next[m.state]
	if !ok {
		m.logger.Warn().Str("state", string(m.state)).Msg("no transition out of state")
		return
	}
	m.logger.Debug().Str("from", string(m.state)).Str("to", string(to)).Msg("state transition")
	m.state = to
	m.record(ctx, detail)
}

// fail moves to FAILED from any non-terminal state and returns err
func (m *machine) fail(ctx context.Context, stage string, err error) error {
	if m.state.Terminal() {
		return err
	}
	m.logger.Error().Err(err).Str("stage", string(m.state)).Msg(stage + " failed")
	m.state = Failed
	m.record(ctx, fmt.Sprintf("%s: %v", stage, err))
	return err
}

func (m *machine) record(ctx context.Context, detail string) {
	// the journal outlives a cancelled run
	ctx = context.WithoutCancel(ctx)
	if err := m.recorder.Transition(ctx, m.runID, m.perspective, string(m.state), detail); err != nil {
		m.logger.Warn().Err(err).Msg("failed to journal transition")
	}
}
