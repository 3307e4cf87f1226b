package stream

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/LdDl/benthic-mot/features"
	"github.com/LdDl/benthic-mot/mot"
	"github.com/pkg/errors"
)

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteJSONFile writes v as indented JSON file at path
func WriteJSONFile(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can't create '%s'", path)
	}
	if err := WriteJSON(file, v); err != nil {
		file.Close()
		return errors.Wrapf(err, "Can't write '%s'", path)
	}
	return file.Close()
}

func readJSONFile(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "Can't open '%s'", path)
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(v); err != nil {
		return errors.Wrapf(err, "Can't decode '%s'", path)
	}
	return nil
}

// ReadResults reads tracking run result written by WriteJSONFile
func ReadResults(path string) (mot.RunResult, error) {
	var result mot.RunResult
	err := readJSONFile(path, &result)
	return result, err
}

// ReadFeatures reads feature report written by WriteJSONFile
func ReadFeatures(path string) (features.Report, error) {
	var report features.Report
	err := readJSONFile(path, &report)
	return report, err
}

// WriteMatrix writes feature vectors as CSV: track_id column followed by named vector components.
// Rows are ordered by track identifier.
func WriteMatrix(w io.Writer, trackFeatures []features.TrackFeatures) error {
	writer := csv.NewWriter(w)
	header := make([]string, 0, features.VectorSize+1)
	header = append(header, "track_id")
	header = append(header, features.VectorNames[:]...)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "Can't write matrix header")
	}

	sorted := make([]features.TrackFeatures, len(trackFeatures))
	copy(sorted, trackFeatures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrackID < sorted[j].TrackID
	})
	for i, row := range features.Matrix(sorted) {
		record := make([]string, 0, len(row)+1)
		record = append(record, strconv.Itoa(sorted[i].TrackID))
		for _, value := range row {
			record = append(record, strconv.FormatFloat(value, 'g', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "Can't write matrix row of track %d", sorted[i].TrackID)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush matrix")
}
