package core

import (
	"context"
	"fmt"
)

// span is one weighted phase of a run. Weights are whole percents so the
// table sums to exactly 100.
type span struct {
	phase  Phase
	weight int
	label  string
}

var exportSpans = []span{
	{PhasePreparing, 0, "Preparing export"},
	{PhaseFetchingData, 30, "Fetching data"},
	{PhaseWritingCSV, 20, "Writing CSV files"},
	{PhaseCopyingPhotos, 30, "Copying photos"},
	{PhaseCreatingArchive, 20, "Creating archive"},
}

var importSpans = []span{
	{PhaseUnzipping, 20, "Extracting archive"},
	{PhaseReadingCSV, 10, "Reading CSV files"},
	{PhaseProcessingData, 40, "Importing data"},
	{PhaseCopyingPhotos, 30, "Importing photos"},
}

// MapExport converts an export event into a global fraction and a label.
// Terminal events map to (1, "").
func MapExport(ev Event) (float64, string) {
	return mapEvent(exportSpans, ev)
}

// MapImport converts an import event into a global fraction and a label.
// Terminal events map to (1, "").
func MapImport(ev Event) (float64, string) {
	return mapEvent(importSpans, ev)
}

func mapEvent(spans []span, ev Event) (float64, string) {
	switch ev.Phase() {
	case PhaseCompleted, PhaseError:
		return 1, ""
	}
	p, ok := ev.(Progress)
	if !ok {
		return 0, ""
	}

	start := 0
	for _, s := range spans {
		if s.phase == p.Stage {
			global := (float64(start) + float64(s.weight)*p.Local()) / 100
			if p.Total > 0 {
				return global, fmt.Sprintf("%s (%d/%d)", s.label, p.Current, p.Total)
			}
			return global, s.label + "..."
		}
		start += s.weight
	}
	return 0, ""
}

func totalWeight(spans []span) int {
	sum := 0
	for _, s := range spans {
		sum += s.weight
	}
	return sum
}

// ShouldEmitPhoto throttles photo progress: every photo below 50, every
// 5th below 200, every 10th above. The last photo is always reported.
func ShouldEmitPhoto(done, total int) bool {
	if done >= total {
		return true
	}
	step := 10
	switch {
	case total < 50:
		step = 1
	case total < 200:
		step = 5
	}
	return done%step == 0
}

// emitter sends events to one consumer and never lets the mapped fraction
// go backwards. Once ctx is done nothing more is sent.
type emitter struct {
	ctx    context.Context
	ch     chan<- Event
	mapper func(Event) (float64, string)
	last   float64
}

func (e *emitter) send(ev Event) bool {
	if e.ctx.Err() != nil {
		return false
	}
	select {
	case e.ch <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) emit(p Progress) {
	global, _ := e.mapper(p)
	if global < e.last {
		return
	}
	if e.send(p) {
		e.last = global
	}
}

func (e *emitter) count(stage Phase, current, total int) {
	e.emit(Progress{Stage: stage, Current: current, Total: total})
}

func (e *emitter) fraction(stage Phase, f float64) {
	e.emit(Progress{Stage: stage, Fraction: f})
}

// finish sends the terminal event, even when it does not move the fraction.
func (e *emitter) finish(ev Event) {
	if e.send(ev) {
		e.last = 1
	}
}
