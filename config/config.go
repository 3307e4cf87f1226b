// Package config loads tracker settings from defaults, YAML file, environment and command line flags
package config

import (
	"bytes"
	"io"
	"strings"

	"github.com/LdDl/benthic-mot/mot"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. BENTHIC_PIPELINE_TRACKING_MAX_DISTANCE
const EnvPrefix = "BENTHIC"

// Settings is complete configuration of the tracker
type Settings struct {
	Debug    bool               `yaml:"debug" mapstructure:"debug"`
	Pipeline mot.PipelineParams `yaml:"pipeline" mapstructure:"pipeline"`
	Features FeatureSettings    `yaml:"features" mapstructure:"features"`
	Output   OutputSettings     `yaml:"output" mapstructure:"output"`
	Metrics  MetricsSettings    `yaml:"metrics" mapstructure:"metrics"`
}

// FeatureSettings configures motion feature extraction
type FeatureSettings struct {
	// Frame rate of tracked video
	FPS float64 `yaml:"fps" mapstructure:"fps"`
	// Max tracks processed concurrently. 0 means GOMAXPROCS
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputSettings names output destinations. Empty value disables the output
type OutputSettings struct {
	Results  string `yaml:"results" mapstructure:"results"`
	Features string `yaml:"features" mapstructure:"features"`
	Matrix   string `yaml:"matrix" mapstructure:"matrix"`
	Database string `yaml:"database" mapstructure:"database"`
}

// MetricsSettings configures Prometheus endpoint
type MetricsSettings struct {
	// Listen address, e.g. ":9090". Empty disables the endpoint
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultSettings returns settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		Pipeline: mot.DefaultPipelineParams(),
		Features: FeatureSettings{
			FPS: 8.0,
		},
		Output: OutputSettings{
			Results: "tracking_results.json",
		},
	}
}

// Validate checks settings
func (s Settings) Validate() error {
	if err := s.Pipeline.Validate(); err != nil {
		return errors.Wrap(err, "pipeline")
	}
	if s.Features.FPS <= 0 {
		return errors.Errorf("features: fps must be positive, got %f", s.Features.FPS)
	}
	if s.Features.Workers < 0 {
		return errors.Errorf("features: workers must not be negative, got %d", s.Features.Workers)
	}
	return nil
}

// New creates viper instance preloaded with default settings and environment overrides.
// Callers may bind command line flags to it before calling Load.
func New() (*viper.Viper, error) {
	v := viper.New()
	defaults, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return nil, errors.Wrap(err, "Can't encode default settings")
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, errors.Wrap(err, "Can't load default settings")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load merges YAML file at path (if not empty) over defaults and returns validated settings
func Load(v *viper.Viper, path string) (Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Settings{}, errors.Wrapf(err, "Can't read config file '%s'", path)
		}
	}
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return Settings{}, errors.Wrap(err, "Can't decode settings")
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, errors.Wrap(err, "Invalid settings")
	}
	return settings, nil
}

// WriteDefaults writes default settings as YAML
func WriteDefaults(w io.Writer) error {
	return Write(w, DefaultSettings())
}

// Write writes settings as YAML
func Write(w io.Writer, settings Settings) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(settings); err != nil {
		return errors.Wrap(err, "Can't encode settings")
	}
	return encoder.Close()
}
