// Package processor turns a new work order spreadsheet into the published
// number line and details fragment.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/notify"
	"workorder-board/internal/publish"
	"workorder-board/internal/types"
	"workorder-board/internal/workorder"
	"workorder-board/pkg/config"
)

// Recorder stores processed orders
type Recorder interface {
	Record(ctx context.Context, order types.ProcessedOrder) error
}

// Processor runs the parse, publish and report steps for one file
type Processor struct {
	publisher   publish.Publisher
	notifier    notify.Notifier
	recorder    Recorder
	ledger      *Ledger
	onPublished func(types.ProcessedOrder)
	now         func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

// WithNotifier sets where outcomes are reported
func WithNotifier(n notify.Notifier) Option {
	return func(p *Processor) { p.notifier = n }
}

// WithRecorder sets the history store
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithLedger sets the monthly text log
func WithLedger(l *Ledger) Option {
	return func(p *Processor) { p.ledger = l }
}

// OnPublished registers a callback run after each successful publish
func OnPublished(fn func(types.ProcessedOrder)) Option {
	return func(p *Processor) { p.onPublished = fn }
}

// WithClock sets the clock used for processing timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// New returns a processor publishing through pub
func New(pub publish.Publisher, opts ...Option) *Processor {
	p := &Processor{
		publisher: pub,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process parses the spreadsheet at path and publishes its number line and
// details fragment. Failures are reported to the notifier and returned.
func (p *Processor) Process(ctx context.Context, path string) (types.ProcessedOrder, error) {
	order, err := p.process(ctx, path)
	if err != nil {
		logrus.WithError(err).WithField("file", path).Error("Error processing file")
		if p.notifier != nil {
			p.notifier.Failure(ctx, path, err)
		}
		return types.ProcessedOrder{}, err
	}
	return order, nil
}

func (p *Processor) process(ctx context.Context, path string) (types.ProcessedOrder, error) {
	order, err := workorder.Parse(path)
	if err != nil {
		return types.ProcessedOrder{}, fmt.Errorf("could not parse Excel file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"file":   path,
		"number": order.Number,
		"date":   order.Date,
	}).Info("Extracted work order")

	seq, err := workorder.SequenceNumber(order.Number)
	if err != nil {
		return types.ProcessedOrder{}, fmt.Errorf("cannot parse work order number: %w", err)
	}
	p.checkSequence(ctx, seq)

	line := workorder.NumberLine(order.Number, order.Date)
	details, err := workorder.DetailsHTML(order)
	if err != nil {
		return types.ProcessedOrder{}, err
	}

	files := []publish.File{
		{Name: config.DataFile, Data: []byte(line + "\n")},
		{Name: config.DetailsFile, Data: details},
	}
	if err := p.publisher.Publish(ctx, files); err != nil {
		return types.ProcessedOrder{}, fmt.Errorf("publish failed: %w", err)
	}

	processed := types.ProcessedOrder{
		WorkOrder:   order,
		NumberLine:  line,
		ProcessedAt: p.now(),
	}

	if p.ledger != nil {
		if err := p.ledger.Append(processed); err != nil {
			logrus.WithError(err).Warn("Failed to append to ledger")
		}
	}
	if p.recorder != nil {
		if err := p.recorder.Record(ctx, processed); err != nil {
			logrus.WithError(err).Warn("Failed to record history")
		}
	}
	if p.notifier != nil {
		p.notifier.Success(ctx, order)
	}
	if p.onPublished != nil {
		p.onPublished(processed)
	}

	logrus.WithFields(logrus.Fields{
		"file": path,
		"line": line,
	}).Info("Work order published")
	return processed, nil
}

// checkSequence warns when the new number does not move past the published one
func (p *Processor) checkSequence(ctx context.Context, seq int) {
	current, err := p.publisher.CurrentNumber(ctx, config.DataFile)
	if errors.Is(err, publish.ErrNotPublished) {
		return
	}
	if err != nil {
		logrus.WithError(err).Warn("Could not read the published number")
		return
	}

	published, err := workorder.SequenceNumber(current)
	if err != nil {
		logrus.WithField("line", current).Warn("Published number line is not parseable")
		return
	}
	logrus.WithField("published", published).Info("Current published number")

	if seq <= published {
		logrus.WithFields(logrus.Fields{
			"new":       seq,
			"published": published,
		}).Warn("New work order number is not greater than the published one")
		if p.notifier != nil {
			p.notifier.Info(ctx, fmt.Sprintf("ℹ️ Novi broj %04d nije veći od objavljenog %04d, objavljujem svejedno.", seq, published))
		}
	}
}
