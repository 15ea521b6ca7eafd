package sampler

import (
	"github.com/rs/zerolog"
)

// Observer receives progress from a run. Start is called once the device is open, Advance
// after every zero sample, and Finish exactly once when the run ends for any reason after Start.
type Observer interface {
	Start(samples, sectors int64)
	Advance(sector int64)
	Finish(out Outcome, err error)
}

type nopObserver struct{}

func (nopObserver) Start(int64, int64)    {}
func (nopObserver) Advance(int64)         {}
func (nopObserver) Finish(Outcome, error) {}

// LogObserver writes a progress line every tenth of the run.
type LogObserver struct {
	Log *zerolog.Logger

	total, done, step int64
}

func (l *LogObserver) Start(samples, sectors int64) {
	l.total, l.done = samples, 0
	l.step = samples / 10
	if l.step == 0 {
		l.step = 1
	}
	l.Log.Info().Int64("samples", samples).Int64("sectors", sectors).Msg("sampling")
}

func (l *LogObserver) Advance(int64) {
	l.done++
	if l.done%l.step == 0 && l.done < l.total {
		l.Log.Info().Int64("done", l.done).Int64("total", l.total).Msg("progress")
	}
}

func (l *LogObserver) Finish(out Outcome, err error) {
	if err != nil {
		l.Log.Error().Err(err).Int64("reads", out.Reads).Msg("sampling aborted")
		return
	}
	l.Log.Info().Stringer("result", out.Result).Int64("reads", out.Reads).Msg("sampling done")
}

// Multi fans events out to several observers in order.
func Multi(obs ...Observer) Observer { return multi(obs) }

type multi []Observer

func (m multi) Start(samples, sectors int64) {
	for _, o := range m {
		o.Start(samples, sectors)
	}
}

func (m multi) Advance(sector int64) {
	for _, o := range m {
		o.Advance(sector)
	}
}

func (m multi) Finish(out Outcome, err error) {
	for _, o := range m {
		o.Finish(out, err)
	}
}
