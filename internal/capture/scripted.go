// ==============================================================================
// SCRIPTED CAPTURE ENGINE - internal/capture/scripted.go
// ==============================================================================
// Deterministic Engine implementation used by the flow simulator and tests.
// Emits a fixed sequence of frames, waiting for ResumeDetection between
// captures the way the real auto-capture widgets do.
// ==============================================================================

package capture

import (
	"context"
	"errors"
)

// ScriptedFrame is one entry in a scripted capture sequence. Exactly one of
// Image or Err is delivered.
type ScriptedFrame struct {
	Image Image
	Meta  Metadata
	Err   error
}

// ScriptedEngine replays a canned frame sequence through the Engine contract.
type ScriptedEngine struct {
	frames []ScriptedFrame
	resume chan struct{}
	done   chan struct{}
}

// NewScriptedEngine builds an engine that will emit the given frames in order.
func NewScriptedEngine(frames ...ScriptedFrame) *ScriptedEngine {
	return &ScriptedEngine{
		frames: frames,
		resume: make(chan struct{}, len(frames)+1),
		done:   make(chan struct{}),
	}
}

// Start emits the scripted frames. After each accepted capture it waits for
// ResumeDetection before emitting the next, mirroring multi-shot widgets.
func (e *ScriptedEngine) Start(ctx context.Context, cb Callbacks) error {
	if cb.OnPhotoTaken == nil {
		return errors.New("scripted engine: OnPhotoTaken callback required")
	}

	for i, frame := range e.frames {
		if frame.Err != nil {
			if cb.OnError != nil {
				cb.OnError(frame.Err)
			}
			continue
		}

		cb.OnPhotoTaken(frame.Image, frame.Meta)

		if i == len(e.frames)-1 {
			break
		}
		select {
		case <-e.resume:
		case <-e.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *ScriptedEngine) ResumeDetection() {
	select {
	case e.resume <- struct{}{}:
	default:
	}
}

func (e *ScriptedEngine) Stop() {
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}
