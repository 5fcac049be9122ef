// Package progress reports fetch progress on the terminal.
package progress

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Reporter receives progress events from the worker pool. Implementations
// must be safe for concurrent use.
type Reporter interface {
	// Begin announces the number of items.
	Begin(total int)
	// Working names the item being processed; only sent in sequential mode.
	Working(item string)
	// Completed marks one item as processed.
	Completed(item string)
	// Finish stops reporting; err is the run error, if any.
	Finish(err error)
}

const (
	updateFrequency = 100 * time.Millisecond
	trackerLength   = 30
)

// Bar renders a go-pretty progress bar.
type Bar struct {
	label   string
	writer  progress.Writer
	tracker *progress.Tracker
	done    chan struct{}
}

// NewBar creates a progress bar labelled label that renders to out.
func NewBar(out io.Writer, label string) *Bar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(trackerLength)
	pw.SetUpdateFrequency(updateFrequency)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true
	pw.Style().Options.TimeInProgressPrecision = time.Second

	return &Bar{label: label, writer: pw}
}

// Begin starts rendering.
func (b *Bar) Begin(total int) {
	b.tracker = &progress.Tracker{
		Message: b.label,
		Total:   int64(total),
		Units:   unitsModels,
	}
	b.writer.AppendTracker(b.tracker)

	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		b.writer.Render()
	}()
}

// Working shows the current item next to the label.
func (b *Bar) Working(item string) {
	if b.tracker != nil {
		b.tracker.UpdateMessage(b.label + ": " + item)
	}
}

// Completed advances the bar by one.
func (b *Bar) Completed(string) {
	if b.tracker != nil {
		b.tracker.Increment(1)
	}
}

// Finish marks the bar done or errored and waits for the last frame.
func (b *Bar) Finish(err error) {
	if b.tracker == nil {
		return
	}
	b.tracker.UpdateMessage(b.label)
	if err != nil {
		b.tracker.MarkAsErrored()
	} else {
		b.tracker.MarkAsDone()
	}
	// Let the renderer draw the final state before stopping it.
	time.Sleep(2 * updateFrequency)
	b.writer.Stop()
	<-b.done
}

var unitsModels = progress.Units{
	Notation:         " models",
	NotationPosition: progress.UnitsNotationPositionAfter,
	Formatter:        progress.FormatNumber,
}

// Nop discards progress events.
type Nop struct{}

func (Nop) Begin(int) {}
func (Nop) Working(string) {}
func (Nop) Completed(string) {}
func (Nop) Finish(error) {}
