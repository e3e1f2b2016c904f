package supervisor

import (
	"context"
	"time"

	"github.com/sweeney/x728-supervisor/internal/logic"
)

// measurePulse samples the button line until the classifier reaches a
// decision and reports it through the intake. It runs outside the loop so
// AC edges keep being handled while the button is held.
func (s *Supervisor) measurePulse(ctx context.Context, start time.Time) {
	for {
		s.clock.Sleep(s.opts.SampleInterval)
		if ctx.Err() != nil {
			return
		}
		elapsed := s.clock.Now().Sub(start)

		held, err := s.deps.Board.Button()
		if err != nil {
			s.report(PulseResult{Elapsed: elapsed, Err: err})
			return
		}

		outcome := s.classifier.Classify(elapsed, !held)
		if outcome != logic.PulsePending {
			s.report(PulseResult{Outcome: outcome, Elapsed: elapsed})
			return
		}
		s.log.Debug().Dur("elapsed", elapsed).Msg("waiting for release")
	}
}

func (s *Supervisor) report(res PulseResult) {
	s.intake.Push(Notification{Kind: KindPulse, Pulse: res, Time: s.clock.Now()})
}
