package types

import (
	"errors"
	"fmt"
	"time"
)

// Config holds backend selection and parameters for backends.Open.
type Config struct {
	Backend       string              `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path          string              `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
	Initialize    bool                `json:"initialize,omitempty" yaml:"initialize,omitempty" mapstructure:"initialize"`
	Mongo         MongoConfig         `json:"mongo,omitempty" yaml:"mongo,omitempty" mapstructure:"mongo"`
	Questionnaire QuestionnaireConfig `json:"questionnaire,omitempty" yaml:"questionnaire,omitempty" mapstructure:"questionnaire"`
	Sources       []Config            `json:"sources,omitempty" yaml:"sources,omitempty" mapstructure:"sources"`
}

// MongoConfig selects one collection on a MongoDB deployment.
type MongoConfig struct {
	URI        string        `json:"uri,omitempty" yaml:"uri,omitempty" mapstructure:"uri"`
	Database   string        `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database"`
	Collection string        `json:"collection,omitempty" yaml:"collection,omitempty" mapstructure:"collection"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// QuestionnaireConfig selects one experiment on the proposal questionnaire
// web service.
type QuestionnaireConfig struct {
	URL        string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	Experiment string `json:"experiment,omitempty" yaml:"experiment,omitempty" mapstructure:"experiment"`
	User       string `json:"user,omitempty" yaml:"user,omitempty" mapstructure:"user"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
}

// Supported backend names.
const (
	BackendJSON          = "json"
	BackendSQLite        = "sqlite"
	BackendMongo         = "mongo"
	BackendQuestionnaire = "questionnaire"
	BackendMulti         = "multi"
)

// Defaults applied by backends when the matching Config field is empty.
const (
	DefaultMongoURI        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "happi"
	DefaultMongoCollection = "items"
	DefaultMongoTimeout    = 10 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrPathEmpty         = errors.New("path must not be empty")
	ErrExperimentEmpty   = errors.New("questionnaire experiment must not be empty")
	ErrSourcesEmpty      = errors.New("multi backend needs at least one source")
	ErrTimeoutInvalid    = errors.New("timeout must not be negative")
	ErrSourceNestedMulti = errors.New("multi backend sources must not be multi")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendJSON:          true,
	BackendSQLite:        true,
	BackendMongo:         true,
	BackendQuestionnaire: true,
	BackendMulti:         true,
}

// KnownBackends returns the backend names Validate accepts.
func KnownBackends() []string {
	return []string{BackendJSON, BackendSQLite, BackendMongo, BackendQuestionnaire, BackendMulti}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend)
	}
	switch c.Backend {
	case BackendJSON, BackendSQLite:
		if c.Path == "" {
			return ErrPathEmpty
		}
	case BackendMongo:
		if c.Mongo.Timeout < 0 {
			return ErrTimeoutInvalid
		}
	case BackendQuestionnaire:
		if c.Questionnaire.Experiment == "" {
			return ErrExperimentEmpty
		}
	case BackendMulti:
		if len(c.Sources) == 0 {
			return ErrSourcesEmpty
		}
		for i, src := range c.Sources {
			if src.Backend == BackendMulti {
				return ErrSourceNestedMulti
			}
			if err := src.Validate(); err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
		}
	}
	return nil
}
