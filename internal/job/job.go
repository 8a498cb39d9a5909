// Package job defines watch jobs and loads them from the jobs file.
package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/validation"
	"github.com/listenupapp/watcherd/internal/watcher"
)

var validate = validation.New()

// Config is one job record as written in the jobs file.
type Config struct {
	// Shell is a pointer so an absent key can default to true.
	Shell     *bool   `yaml:"shell"`
	Watch     string  `yaml:"watch" validate:"required"`
	Command   string  `yaml:"command" validate:"required"`
	Events    List    `yaml:"events" validate:"required,min=1"`
	Exclude   List    `yaml:"exclude"`
	Rate      float64 `yaml:"rate" validate:"gte=0"`
	Recursive bool    `yaml:"recursive"`
	Wait      bool    `yaml:"wait"`
}

// List is a string list written either as a YAML sequence or as one
// comma-separated string. Entries are trimmed and empty entries dropped.
type List []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	switch value.Kind {
	case yaml.ScalarNode:
		items = strings.Split(value.Value, ",")
	case yaml.SequenceNode:
		if err := value.Decode(&items); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: expected a string or a list", value.Line)
	}

	*l = trimList(items)
	return nil
}

// splitList parses a comma-separated list.
func splitList(s string) List {
	return trimList(strings.Split(s, ","))
}

func trimList(items []string) List {
	out := make(List, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Job is a validated, immutable watch job.
type Job struct {
	Exclude   *watcher.Filter
	Name      string
	Root      string
	Command   string
	Mask      watcher.Mask
	Rate      float64
	Recursive bool
	Shell     bool
	Wait      bool
}

// New validates cfg and builds the job called name.
func New(name string, cfg Config) (*Job, error) {
	if err := validate.Validate(cfg); err != nil {
		return nil, err
	}

	root, err := expandHome(cfg.Watch)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeConfig, "job %q: watch path", name)
	}
	if !filepath.IsAbs(root) {
		return nil, errors.Configf("job %q: watch path %q is not absolute", name, cfg.Watch)
	}

	mask := watcher.ParseEvents(cfg.Events)
	if mask == 0 {
		return nil, errors.Configf("job %q: no known events in %q", name, strings.Join(cfg.Events, ", "))
	}

	filter, err := watcher.NewFilter(cfg.Exclude)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeConfig, "job %q: exclude", name)
	}

	shell := true
	if cfg.Shell != nil {
		shell = *cfg.Shell
	}

	return &Job{
		Name:      name,
		Root:      filepath.Clean(root),
		Mask:      mask,
		Recursive: cfg.Recursive,
		Exclude:   filter,
		Command:   cfg.Command,
		Shell:     shell,
		Wait:      cfg.Wait,
		Rate:      cfg.Rate,
	}, nil
}

// NativeMask is the mask registered with the native facility. Recursive
// jobs also need directory creation and both move events to keep the tree
// in step with renames, and a requested move_to needs move_from to find the
// rename source.
func (j *Job) NativeMask() watcher.Mask {
	m := j.Mask
	if j.Recursive {
		m |= watcher.Create | watcher.Move
	}
	if j.Mask.Has(watcher.MoveTo) {
		m |= watcher.MoveFrom
	}
	return m
}

// Wants reports whether events of kind m are dispatched for this job.
func (j *Job) Wants(m watcher.Mask) bool {
	return j.Mask.Has(m &^ watcher.IsDir)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}
