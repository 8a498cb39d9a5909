package job

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/watcherd/internal/errors"
)

var configKeys = []string{"watch", "events", "recursive", "exclude", "command", "shell", "wait", "rate"}

// LoadFile reads the jobs file at path. A file ending in .ini is decoded
// with ParseINI, anything else with Parse.
func LoadFile(path string) ([]*Job, []error, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- jobs file path is operator supplied
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeConfig, "read jobs file %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return ParseINI(data)
	}
	return Parse(data)
}

// Parse decodes a jobs file: a mapping of job name to job record. Jobs are
// returned in file order. A record that cannot be used is reported in the
// second return value and skipped; the last error is only for a document
// that cannot be read at all. An empty document has no jobs.
func Parse(data []byte) ([]*Job, []error, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeConfig, "parse jobs file")
	}
	if len(doc.Content) == 0 {
		return nil, nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, nil, errors.Configf("jobs file line %d: expected a mapping of job name to job", root.Line)
	}

	var (
		jobs    []*Job
		jobErrs []error
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		j, err := decode(name, root.Content[i+1])
		if err != nil {
			jobErrs = append(jobErrs, err)
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, jobErrs, nil
}

func decode(name string, node *yaml.Node) (*Job, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Configf("job %q (line %d): expected a mapping", name, node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if key := node.Content[i]; !slices.Contains(configKeys, key.Value) {
			return nil, errors.Configf("job %q (line %d): unknown field %q", name, key.Line, key.Value)
		}
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, errors.CodeConfig, "job %q", name)
	}
	return build(name, cfg)
}

// build validates a decoded record. Validation failures are reported as
// configuration errors of the job.
func build(name string, cfg Config) (*Job, error) {
	j, err := New(name, cfg)
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return nil, errors.Wrapf(err, errors.CodeConfig, "job %q", name)
		}
		return nil, err
	}
	return j, nil
}

// EnsureFile creates an empty jobs file at path, and its directory, when no
// file exists there yet.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat jobs file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("create jobs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640) //#nosec G304 -- jobs file path is operator supplied
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create jobs file: %w", err)
	}
	return true, f.Close()
}
