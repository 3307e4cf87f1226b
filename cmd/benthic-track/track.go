package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/LdDl/benthic-mot/mot"
	"github.com/LdDl/benthic-mot/store"
	"github.com/LdDl/benthic-mot/stream"
	"github.com/LdDl/benthic-mot/telemetry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTrackCmd(a *app) *cobra.Command {
	var input, clip string
	var extract bool

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Merge, fuse and associate detector output into tracks",
		Long: `Reads detector output as JSON lines, one frame per line:
  {"frame":0,"dark":[{"centroid":{"x":1,"y":2},"bbox":{"x":0,"y":0,"w":4,"h":4},"area":12}],"bright":[],"appearance":[]}
Frames must come in increasing index order. Interrupting the command finalizes tracks built so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTrack(cmd.Context(), cmd.InOrStdin(), input, clip, extract)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "-", "Detector output in JSON lines, '-' reads stdin")
	flags.StringVar(&clip, "clip", "", "Clip name stored with the run (defaults to input file name)")
	flags.BoolVar(&extract, "features", false, "Extract motion features of finished tracks")
	flags.StringP("output", "o", "", "Tracking results JSON file")
	bindSetting(flags, "output", "output.results")
	flags.String("db", "", "SQLite database to store the run in")
	bindSetting(flags, "db", "output.database")
	flags.String("features-output", "", "Motion features JSON file")
	bindSetting(flags, "features-output", "output.features")
	flags.String("matrix", "", "Feature matrix CSV file")
	bindSetting(flags, "matrix", "output.matrix")
	return cmd
}

func (a *app) runTrack(ctx context.Context, stdin io.Reader, input, clip string, extract bool) error {
	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewTrackerMetrics(registry)
	if err != nil {
		return errors.Wrap(err, "Can't register metrics")
	}
	stopMetrics := serveMetrics(a.settings.Metrics.Addr, registry, a.logger)
	defer stopMetrics()

	pipeline, err := mot.NewPipeline(a.settings.Pipeline, mot.WithLogger(a.logger), mot.WithObserver(metrics))
	if err != nil {
		return err
	}

	r, closeInput, err := openInput(input, stdin)
	if err != nil {
		return err
	}
	defer closeInput()
	if clip == "" && input != "-" {
		clip = filepath.Base(input)
	}
	logger := a.logger.With(zap.String("run_id", pipeline.RunID().String()), zap.String("clip", clip))
	logger.Info("tracking started", zap.String("input", input))

	frames, err := stream.ReadFrames(ctx, r, func(frame mot.Frame) error {
		pipeline.ProcessFrame(frame)
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return errors.Wrapf(err, "Can't process frames of '%s'", input)
		}
		logger.Warn("tracking interrupted, keeping partial result", zap.Int("frames", frames))
	}

	// Results of an interrupted run are still written
	ctx = context.WithoutCancel(ctx)
	result := pipeline.Finalize()
	logger.Info("tracking finished",
		zap.Int("frames", result.Summary.Frames),
		zap.Int("tracks", result.Summary.TotalTracks),
		zap.Int("valid", result.Summary.ValidTracks),
		zap.Int("frozen", result.Summary.FrozenTracks),
	)

	if path := a.settings.Output.Results; path != "" {
		if err := stream.WriteJSONFile(path, result); err != nil {
			return err
		}
		logger.Info("results written", zap.String("path", path))
	}

	var st *store.Store
	if path := a.settings.Output.Database; path != "" {
		st, err = store.Open(ctx, path, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(ctx, clip, result); err != nil {
			return err
		}
	}

	if extract || a.settings.Output.Features != "" || a.settings.Output.Matrix != "" {
		return a.extractFeatures(ctx, logger, result.RunID, result.Tracks, st)
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Can't open input '%s'", path)
	}
	return file, func() { file.Close() }, nil
}
