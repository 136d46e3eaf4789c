// SPDX-License-Identifier: MIT
package cblia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/fennekki/cblia/lexer"
	"github.com/fennekki/cblia/types"
)

type (
	// Batch tokenizes independent byte sources concurrently.
	//
	// Each source is still scanned strictly sequentially; only whole sources
	// run in parallel.
	Batch struct {
		debug  bool
		logger logrus.FieldLogger

		poolSize int
	}

	// BatchOption defines the Batch functional option type.
	BatchOption func(*Batch)
)

const defPoolSize = 4

// Batch scanning errors.
var (
	ErrEmptyBatch  = errors.New("empty batch source")
	ErrScanSources = errors.New("failed to scan sources")

	ErrPanicked = errors.New("recovery from panic")
)

// NewBatch instantiates a Batch.
func NewBatch(opts ...BatchOption) *Batch {
	b := &Batch{
		logger:   logrus.New(),
		poolSize: defPoolSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// WithBatchDebug configures the debug option.
func WithBatchDebug(debug bool) BatchOption {
	return func(b *Batch) { b.debug = debug }
}

// WithBatchLogger configures the logger option.
func WithBatchLogger(logger logrus.FieldLogger) BatchOption {
	return func(b *Batch) { b.logger = logger }
}

// WithPoolSize configures the goroutine pool size option.
func WithPoolSize(size int) BatchOption {
	return func(b *Batch) {
		if size > 0 {
			b.poolSize = size
		}
	}
}

// ScanSources tokenizes every source on a shared goroutine pool, preserving
// input order in the output.
//
// The first failing source invalidates the whole batch.
func (b *Batch) ScanSources(ctx context.Context, sources ...io.Reader) (out []lexer.Tokens, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}

		if err != nil {
			// Skip expensive operation if not debug.
			if b.debug {
				b.logger.Debugf("partial batch output: %s", spew.Sprint(out))
			}

			err = fmt.Errorf("%w: %v", ErrScanSources, err)
		}
	}()

	if len(sources) < 1 {
		err = ErrEmptyBatch
		return
	}

	select {
	case <-ctx.Done():
		err = ctx.Err()
		return
	default:
	}

	size := b.poolSize
	if size > len(sources) {
		size = len(sources)
	}

	var pool *ants.Pool
	if pool, err = ants.NewPool(size); err != nil {
		return
	}
	defer pool.Release()

	out = make([]lexer.Tokens, len(sources))
	done := make(chan bool, len(sources))

	// Every worker must be able to send without blocking, else a full pool
	// stalls the submission loop before the monitor starts draining.
	errCap := len(sources)
	if errCap < types.BufferedErrChanSize {
		errCap = types.BufferedErrChanSize
	}
	errChan := make(chan error, errCap)

	var (
		counter types.SafeCounter
		wg      sync.WaitGroup
	)
	for index := range sources {
		index := index

		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()

			ts, sErr := lexer.New(
				lexer.WithDebug(b.debug),
				lexer.WithLogger(b.logger),
				lexer.WithSource(sources[index]),
			).Drain(ctx)

			out[index] = ts
			counter.Add(len(ts))

			if sErr != nil {
				// Mark the failing source in the partial output.
				out[index] = append(out[index], lexer.Token{ID: lexer.TokenError, Err: sErr})
				errChan <- fmt.Errorf("source %d: %w", index, sErr)
				return
			}
			done <- true
		}); err != nil {
			wg.Done()
			wg.Wait()
			return
		}
	}

	err = types.MonitorChannels(ctx, len(sources), done, errChan, "source scan")

	// MonitorChannels returns early on cancellation; out must not mutate
	// after ScanSources returns, so settle every worker first. The buffered
	// channels guarantee no worker blocks on its final send.
	wg.Wait()

	if err != nil {
		return
	}

	if b.debug {
		b.logger.Debugf("batch scanned %d token(s) off %d source(s)", counter.Value(), len(sources))
	}

	return
}
