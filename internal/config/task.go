// Package config loads task descriptions for the event engine.
//
// A task file is YAML (or JSON, which yaml.v3 also accepts):
//
//	name: Reconstruction
//	log_level: info
//	events: 100
//	event_rate: 50      # events per second, 0 = unthrottled
//	profiling: true
//	algorithms:
//	  - identifier: Sleep/trackFit
//	    params:
//	      duration: 10ms
//	  - identifier: Noop/vertexFit
//
// The algorithms list is kept as a raw node and interpreted on demand, so a
// missing or malformed list is reported to whoever asks for it rather than
// failing the whole load.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zebiner/evt-profiler/internal/logging"
	"github.com/zebiner/evt-profiler/internal/profiling"
)

// AlgorithmsField is the task field that lists algorithms
const AlgorithmsField = "algorithms"

// DefaultTaskName is used when the file has no name
const DefaultTaskName = "Task"

// Task is a parsed task description
type Task struct {
	Name      string    `yaml:"name" validate:"required"`
	LogLevel  string    `yaml:"log_level" validate:"omitempty,loglevel"`
	Events    int       `yaml:"events" validate:"gte=0"`
	EventRate float64   `yaml:"event_rate" validate:"gte=0"`
	Profiling *bool     `yaml:"profiling"`
	Raw       yaml.Node `yaml:"algorithms" validate:"-"`
}

// taskValidate checks the scalar task fields. Errors name the YAML key.
var taskValidate *validator.Validate

func init() {
	taskValidate = validator.New()
	taskValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = taskValidate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
}

// AlgorithmSpec describes one configured algorithm
type AlgorithmSpec struct {
	Identifier string                 `yaml:"identifier"`
	Params     map[string]interface{} `yaml:"params"`
}

// Namespace returns the part of the identifier before the last '/'
func (s AlgorithmSpec) Namespace() string {
	i := strings.LastIndex(s.Identifier, "/")
	if i < 0 {
		return ""
	}
	return s.Identifier[:i]
}

// Name returns the algorithm key
func (s AlgorithmSpec) Name() string {
	return AlgorithmName(s.Identifier)
}

// AlgorithmName extracts the key from a "<namespace>/<name>" identifier:
// the substring after the last '/', or the whole identifier without one.
func AlgorithmName(identifier string) string {
	return identifier[strings.LastIndex(identifier, "/")+1:]
}

// LoadTask reads and parses a task file
func LoadTask(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	task, err := ParseTask(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return task, nil
}

// ParseTask parses a task description
func ParseTask(data []byte) (*Task, error) {
	task := &Task{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(task); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("task description is empty")
		}
		return nil, err
	}
	if task.Name == "" {
		task.Name = DefaultTaskName
	}
	return task, nil
}

// TaskName returns the task name used to label the event summary
func (t *Task) TaskName() string {
	return t.Name
}

// ProfilingEnabled reports whether the profiling service should run.
// Defaults to true.
func (t *Task) ProfilingEnabled() bool {
	return t.Profiling == nil || *t.Profiling
}

// Specs decodes the algorithms list
func (t *Task) Specs() ([]AlgorithmSpec, error) {
	if t.Raw.Kind == 0 {
		return nil, profiling.NewError(profiling.ErrCodeConfiguration, AlgorithmsField, "missing field")
	}
	if t.Raw.Kind != yaml.SequenceNode {
		return nil, profiling.NewError(profiling.ErrCodeConfiguration, AlgorithmsField,
			fmt.Sprintf("expected a list, found %s", kindName(t.Raw.Kind)))
	}

	specs := make([]AlgorithmSpec, 0, len(t.Raw.Content))
	for i, item := range t.Raw.Content {
		key := fmt.Sprintf("%s[%d]", AlgorithmsField, i)
		if item.Kind != yaml.MappingNode {
			return nil, profiling.NewError(profiling.ErrCodeConfiguration, key,
				fmt.Sprintf("expected a mapping, found %s", kindName(item.Kind)))
		}
		var spec AlgorithmSpec
		if err := item.Decode(&spec); err != nil {
			return nil, profiling.WrapError(profiling.ErrCodeConfiguration, key, "malformed entry", err)
		}
		if spec.Identifier == "" || AlgorithmName(spec.Identifier) == "" {
			return nil, profiling.NewError(profiling.ErrCodeConfiguration, key, "missing identifier")
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// AlgorithmIdentifiers returns the algorithm keys in configuration order
func (t *Task) AlgorithmIdentifiers() ([]string, error) {
	specs, err := t.Specs()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(specs))
	for i, spec := range specs {
		ids[i] = spec.Name()
	}
	return ids, nil
}

// Validate checks the whole task description
func (t *Task) Validate() error {
	if _, err := t.Specs(); err != nil {
		return err
	}
	if err := taskValidate.Struct(t); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "gte":
			return fmt.Errorf("%s must not be negative, got %v", fe.Field(), fe.Value())
		case "loglevel":
			return fmt.Errorf("invalid log level: %q", fe.Value())
		default:
			return fmt.Errorf("%s failed %s check", fe.Field(), fe.Tag())
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "nothing"
	}
}
