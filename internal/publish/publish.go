// Package publish delivers the number file and the details fragment to the
// places the board reads them from.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotPublished is returned by CurrentNumber when nothing was published yet
var ErrNotPublished = errors.New("nothing published yet")

// File is a named payload to publish
type File struct {
	Name string
	Data []byte
}

// Publisher stores published files and reads back the current number line
type Publisher interface {
	Name() string
	Publish(ctx context.Context, files []File) error
	CurrentNumber(ctx context.Context, name string) (string, error)
}

// Multi publishes to every target in order
type Multi []Publisher

// Name lists the targets
func (m Multi) Name() string {
	name := "multi("
	for i, p := range m {
		if i > 0 {
			name += ","
		}
		name += p.Name()
	}
	return name + ")"
}

// Publish sends files to every target, continuing past failures
func (m Multi) Publish(ctx context.Context, files []File) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, files); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// CurrentNumber returns the first number line any target can provide
func (m Multi) CurrentNumber(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, p := range m {
		line, err := p.CurrentNumber(ctx, name)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, ErrNotPublished) {
			logrus.WithError(err).WithField("target", p.Name()).Warn("Failed to read current number")
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrNotPublished
	}
	return "", errors.Join(errs...)
}

// retry runs fn up to attempts times, waiting wait*(n) after the n-th failure
func retry(ctx context.Context, op string, attempts int, wait time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotPublished) {
			return lastErr
		}
		logrus.WithFields(logrus.Fields{
			"op":      op,
			"attempt": i + 1,
			"of":      attempts,
		}).WithError(lastErr).Warn("Operation failed")

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait * time.Duration(i+1)):
		}
	}
	logrus.WithField("op", op).WithError(lastErr).Error("Operation failed after retries")
	return lastErr
}
