package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/smallbiznis/salestream/internal/clock"
	obsmetrics "github.com/smallbiznis/salestream/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result summarizes one pass over a source stream. RowsProcessed counts
// rows in committed windows; on failure it reflects rows committed before
// the failing window, not zero.
type Result struct {
	RowsProcessed int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Batcher decodes a source stream incrementally and drives the Writer once
// per window of windowSize rows, plus once for the trailing partial window.
// Bounding each transaction to a window caps memory and lock duration;
// partial application across windows is the accepted failure policy.
type Batcher struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	writer     *Writer
	windowSize int
}

func NewBatcher(db *gorm.DB, writer *Writer, windowSize int, clk clock.Clock, log *zap.Logger) *Batcher {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Batcher{
		db:         db,
		log:        log.Named("ingest.batcher"),
		clock:      clk,
		writer:     writer,
		windowSize: windowSize,
	}
}

// Run consumes the stream until EOF or first failure. On failure no
// further windows are attempted; windows committed before it stay
// committed, and the returned Result carries their row count.
func (b *Batcher) Run(ctx context.Context, src io.Reader) (Result, error) {
	res := Result{StartedAt: b.clock.Now()}
	finish := func(err error) (Result, error) {
		res.FinishedAt = b.clock.Now()
		obsmetrics.Ingest().AddRowsIngested(res.RowsProcessed)
		return res, err
	}

	reader := csv.NewReader(src)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return finish(&DecodeError{Line: 1, Err: errors.New("empty stream, header expected")})
		}
		return finish(&DecodeError{Line: 1, Err: err})
	}
	idx, err := indexHeader(header)
	if err != nil {
		return finish(&DecodeError{Line: 1, Err: err})
	}

	window := make([]Record, 0, b.windowSize)
	windowNum := 0
	line := 1

	flush := func() error {
		windowNum++
		if err := b.writer.WriteWindow(ctx, b.db, windowNum, window); err != nil {
			return err
		}
		res.RowsProcessed += int64(len(window))
		window = window[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return finish(&DecodeError{Line: line, Err: err})
		}

		rec, err := decodeRecord(fields, idx, line)
		if err != nil {
			return finish(err)
		}

		window = append(window, rec)
		if len(window) == b.windowSize {
			if err := flush(); err != nil {
				return finish(err)
			}
		}
	}

	if len(window) > 0 {
		if err := flush(); err != nil {
			return finish(err)
		}
	}

	b.log.Info("stream ingested",
		zap.Int64("rows", res.RowsProcessed),
		zap.Int("windows", windowNum),
	)
	return finish(nil)
}
