package main

import (
	"context"
	"os"

	"github.com/LdDl/benthic-mot/features"
	"github.com/LdDl/benthic-mot/mot"
	"github.com/LdDl/benthic-mot/store"
	"github.com/LdDl/benthic-mot/stream"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultFeaturesPath = "motion_features.json"

func newFeaturesCmd(a *app) *cobra.Command {
	var resultsPath, runID string
	var validOnly bool

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Extract motion features from finished tracks",
		Long:  "Reads tracks either from a tracking results JSON file (--results) or from the database (--db and --run).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFeatures(cmd.Context(), resultsPath, runID, validOnly)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&resultsPath, "results", "r", "", "Tracking results JSON file")
	flags.StringVar(&runID, "run", "", "Run identifier to load from the database")
	flags.BoolVar(&validOnly, "valid-only", false, "Skip tracks which failed validation")
	flags.String("db", "", "SQLite database with stored runs")
	bindSetting(flags, "db", "output.database")
	flags.StringP("output", "o", "", "Motion features JSON file")
	bindSetting(flags, "output", "output.features")
	flags.String("matrix", "", "Feature matrix CSV file")
	bindSetting(flags, "matrix", "output.matrix")
	cmd.MarkFlagsMutuallyExclusive("results", "run")
	cmd.MarkFlagsOneRequired("results", "run")
	return cmd
}

func (a *app) runFeatures(ctx context.Context, resultsPath, runID string, validOnly bool) error {
	var records []mot.TrackRecord
	var st *store.Store

	if runID != "" {
		if a.settings.Output.Database == "" {
			return errors.New("--run requires a database (--db or output.database)")
		}
		var err error
		st, err = store.Open(ctx, a.settings.Output.Database, a.logger)
		if err != nil {
			return err
		}
		defer st.Close()
		records, err = st.LoadTracks(ctx, runID, validOnly)
		if err != nil {
			return err
		}
	} else {
		result, err := stream.ReadResults(resultsPath)
		if err != nil {
			return err
		}
		runID = result.RunID
		records = result.Tracks
		if validOnly {
			records = filterValid(records)
		}
	}

	if a.settings.Output.Features == "" {
		a.settings.Output.Features = defaultFeaturesPath
	}
	return a.extractFeatures(ctx, a.logger.With(zap.String("run_id", runID)), runID, records, st)
}

// extractFeatures computes features of records and writes them to configured outputs
func (a *app) extractFeatures(ctx context.Context, logger *zap.Logger, runID string, records []mot.TrackRecord, st *store.Store) error {
	extractor, err := features.NewExtractor(a.settings.Features.FPS, features.WithWorkers(a.settings.Features.Workers), features.WithLogger(logger))
	if err != nil {
		return err
	}
	extracted, err := extractor.ExtractAll(ctx, records)
	if err != nil {
		return err
	}
	report := features.Report{
		RunID:   runID,
		FPS:     extractor.FPS(),
		Summary: features.Summarize(extracted),
		Tracks:  extracted,
	}

	path := a.settings.Output.Features
	if path == "" {
		path = defaultFeaturesPath
	}
	if err := stream.WriteJSONFile(path, report); err != nil {
		return err
	}
	logger.Info("features written", zap.String("path", path), zap.Int("tracks", len(extracted)))

	if path := a.settings.Output.Matrix; path != "" {
		if err := writeMatrixFile(path, extracted); err != nil {
			return err
		}
		logger.Info("feature matrix written", zap.String("path", path))
	}
	if st != nil {
		if err := st.SaveFeatures(ctx, runID, extracted); err != nil {
			return err
		}
	}

	logger.Info("features summary",
		zap.Any("trajectories", report.Summary.Trajectories),
		zap.Any("organisms", report.Summary.Organisms),
		zap.Float64("avg_speed", report.Summary.AvgSpeed),
		zap.Float64("avg_straightness", report.Summary.AvgStraightness),
	)
	return nil
}

func writeMatrixFile(path string, extracted []features.TrackFeatures) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	if err := stream.WriteMatrix(file, extracted); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func filterValid(records []mot.TrackRecord) []mot.TrackRecord {
	valid := make([]mot.TrackRecord, 0, len(records))
	for _, record := range records {
		if record.IsValid {
			valid = append(valid, record)
		}
	}
	return valid
}
