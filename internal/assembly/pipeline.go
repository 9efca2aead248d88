package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imageassembly/internal/fileutil"
	"imageassembly/internal/grid"
	"imageassembly/internal/logging"
	"imageassembly/internal/metadata"
	"imageassembly/internal/ometiff"
	"imageassembly/internal/pixel"
	"imageassembly/internal/stitching"
)

// LockFileName is created in the output directory for the duration of a run
// and removed when the run ends.
const LockFileName = ".imageassembly.lock"

// Resolver opens the composite source of a time point and names its
// representative tile.
type Resolver interface {
	Resolve(tp stitching.TimePoint) (pixel.Source, string, error)
}

// Describer builds the output descriptor for a resolved source.
type Describer func(src pixel.Source, representative, name string) (metadata.Descriptor, error)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithResolver replaces the stitching-vector resolver.
func WithResolver(r Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithDescriber replaces metadata.Build.
func WithDescriber(d Describer) Option {
	return func(p *Pipeline) { p.describe = d }
}

// Pipeline assembles every discovered time point into one tiled OME-TIFF.
// A failing time point never aborts its siblings; the run fails only when
// nothing was assembled.
type Pipeline struct {
	opts     Options
	resolver Resolver
	describe Describer
	logger   *slog.Logger
}

// New builds a pipeline. Without WithResolver, sources are composites read
// from opts.TilesDir.
func New(opts Options, logger *slog.Logger, options ...Option) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	p := &Pipeline{
		opts:     opts,
		resolver: stitching.Resolver{TilesDir: opts.TilesDir, CacheTiles: opts.CacheTiles},
		describe: metadata.Build,
		logger:   logging.NewComponentLogger(logger, "assembly"),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Run discovers time points and assembles each of them. The report is
// returned even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (report Report, err error) {
	report = Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, p.logger)

	unlock, err := p.lockOutput()
	if err != nil {
		return report, err
	}
	defer unlock()

	report.StalePartials = p.removeStalePartials(logger)

	points, err := stitching.Discover(p.opts.StitchingDir, p.opts.VectorPrefix, p.opts.VectorSuffix)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	logger.Info("assembly started",
		logging.Int("time_points", len(points)),
		logging.Int("workers", p.opts.Workers),
		logging.String("output_dir", p.opts.OutputDir),
	)

	report.Results = make([]Result, len(points))
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, tp := range points {
		if err := ctx.Err(); err != nil {
			report.Results[i] = Result{TimePoint: tp.ID, Outcome: OutcomeFailed, Reason: ReasonCanceled, Err: err}
			continue
		}
		g.Go(func() error {
			report.Results[i] = p.assemble(ctx, tp)
			return nil
		})
	}
	_ = g.Wait()
	report.tally()

	logger.Info("assembly finished",
		logging.Int("assembled", report.Assembled),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", time.Since(report.StartedAt)),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("assembly interrupted: %w", err)
	}
	if report.Assembled == 0 {
		return report, fmt.Errorf("%w: %d time points discovered", ErrNoTimeSlicesAssembled, len(points))
	}
	return report, nil
}

func (p *Pipeline) lockOutput() (func(), error) {
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}
	path := filepath.Join(p.opts.OutputDir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, p.opts.OutputDir)
	}
	// A finishing run unlinks the lock file before releasing it, so a lock
	// won on the unlinked inode guards nothing.
	if !lockedCurrentFile(lock, path) {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, p.opts.OutputDir)
	}
	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to remove output lock file", logging.Error(err))
		}
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}, nil
}

func lockedCurrentFile(lock *flock.Flock, path string) bool {
	held, err := lock.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

// removeStalePartials deletes partial files a crashed run left behind. The
// output lock guarantees none of them belong to a live writer.
func (p *Pipeline) removeStalePartials(logger *slog.Logger) []string {
	ext := p.opts.OutputExtension
	removed, err := fileutil.RemoveMatching(p.opts.OutputDir, func(name string) bool {
		return fileutil.IsPartial(name, ext)
	})
	if err != nil {
		logging.WarnWithContext(logger, "could not remove stale partial files", "stale_partials",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove hidden .partial files from the output directory by hand"),
		)
	}
	for _, path := range removed {
		logger.Info("removed stale partial file", logging.String("path", path))
	}
	return removed
}

func (p *Pipeline) assemble(ctx context.Context, tp stitching.TimePoint) (res Result) {
	start := time.Now()
	ctx = logging.WithTimePoint(ctx, tp.ID)
	logger := logging.WithContext(ctx, p.logger)
	res = Result{TimePoint: tp.ID}
	defer func() {
		res.Duration = time.Since(start)
		p.logResult(logger, res)
	}()

	if err := ctx.Err(); err != nil {
		return fail(res, OutcomeFailed, err)
	}

	src, representative, err := p.resolver.Resolve(tp)
	if err != nil {
		return fail(res, OutcomeSkipped, wrap(ErrUnreadable, tp.ID, "resolve source", err))
	}
	defer src.Close()

	name := p.opts.OutputName(tp.ID)
	desc, err := p.describe(src, representative, name)
	if err != nil {
		if !errors.Is(err, metadata.ErrMetadataUnavailable) {
			err = fmt.Errorf("%w: %w", metadata.ErrMetadataUnavailable, err)
		}
		return fail(res, OutcomeFailed, fmt.Errorf("time point %s: %w", tp.ID, err))
	}
	res.Width, res.Height = desc.Width, desc.Height

	output := filepath.Join(p.opts.OutputDir, name)
	w, err := ometiff.Create(output, desc.Image(), p.opts.Writer)
	if err != nil {
		return fail(res, OutcomeFailed, wrap(ErrWriterInit, tp.ID, "create "+name, err))
	}
	defer w.Abort()

	tiles, err := grid.Plan(desc.Width, desc.Height, p.opts.Writer.TileSize)
	if err != nil {
		return fail(res, OutcomeFailed, wrap(ErrWriterInit, tp.ID, "plan tiles", err))
	}
	logger.Debug("writing tiles",
		logging.String("output", output),
		logging.Int("width", desc.Width),
		logging.Int("height", desc.Height),
		logging.Int("tiles", len(tiles)),
		logging.Bool("bigtiff", w.BigTIFF()),
	)

	from := src.Format()
	sampler := logging.NewProgressSampler(10)
	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return fail(res, OutcomeFailed, wrap(ErrWrite, tp.ID, fmt.Sprintf("before tile %d", tile.Index), err))
		}
		data, err := src.ReadRegion(tile.X, tile.Y, tile.Width, tile.Height)
		if err != nil {
			return fail(res, OutcomeFailed, wrap(ErrWrite, tp.ID, fmt.Sprintf("read tile %d", tile.Index), err))
		}
		data = pixel.Normalize(data, tile.Width*tile.Height, from, desc.Format)
		if err := w.WriteTile(tile, data); err != nil {
			return fail(res, OutcomeFailed, wrap(ErrWrite, tp.ID, fmt.Sprintf("write tile %d", tile.Index), err))
		}
		if sampler.ShouldLog(tile.Index+1, len(tiles)) {
			logger.Debug("tile progress", logging.Int("written", tile.Index+1), logging.Int("total", len(tiles)))
		}
	}

	if err := w.Close(); err != nil {
		return fail(res, OutcomeFailed, wrap(ErrFinalize, tp.ID, "close "+name, err))
	}

	res.Outcome = OutcomeAssembled
	res.Output = output
	res.Tiles = w.TilesWritten()
	res.Bytes = w.BytesWritten()
	res.BigTIFF = w.BigTIFF()
	return res
}

func fail(res Result, outcome Outcome, err error) Result {
	res.Outcome = outcome
	res.Reason = ReasonOf(err)
	res.Err = err
	return res
}

func (p *Pipeline) logResult(logger *slog.Logger, res Result) {
	switch res.Outcome {
	case OutcomeAssembled:
		logger.Info("time point assembled",
			logging.String("output", res.Output),
			logging.Int("tiles", res.Tiles),
			logging.Uint64("bytes", res.Bytes),
			logging.Duration("elapsed", res.Duration),
		)
	case OutcomeSkipped:
		logging.WarnWithContext(logger, "time point skipped", "time_point_skipped",
			logging.String("reason", string(res.Reason)),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "check the stitching vector and the tiles it references"),
		)
	default:
		if errors.Is(res.Err, context.Canceled) {
			logger.Info("time point canceled")
			return
		}
		logging.ErrorWithContext(logger, "time point failed", "time_point_failed",
			logging.String("reason", string(res.Reason)),
			logging.Error(res.Err),
		)
	}
}
