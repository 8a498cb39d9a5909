package job

import (
	"slices"

	"gopkg.in/ini.v1"

	"github.com/listenupapp/watcherd/internal/errors"
)

// iniOptions keep values verbatim: commands routinely contain quotes, '#'
// and ';'.
var iniOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	PreserveSurroundedQuote: true,
}

// ParseINI decodes a jobs file in INI form: one [section] per job, with the
// same keys as the YAML form and comma-separated lists. Keys outside any
// section are ignored. Results follow Parse.
func ParseINI(data []byte) ([]*Job, []error, error) {
	f, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeConfig, "parse jobs file")
	}

	var (
		jobs    []*Job
		jobErrs []error
	)
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		j, err := decodeSection(sec)
		if err != nil {
			jobErrs = append(jobErrs, err)
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, jobErrs, nil
}

func decodeSection(sec *ini.Section) (*Job, error) {
	name := sec.Name()
	for _, key := range sec.Keys() {
		if !slices.Contains(configKeys, key.Name()) {
			return nil, errors.Configf("job %q: unknown field %q", name, key.Name())
		}
	}

	cfg := Config{
		Watch:   sec.Key("watch").String(),
		Command: sec.Key("command").String(),
		Events:  splitList(sec.Key("events").String()),
		Exclude: splitList(sec.Key("exclude").String()),
	}

	var err error
	if cfg.Recursive, err = boolKey(sec, "recursive"); err != nil {
		return nil, err
	}
	if cfg.Wait, err = boolKey(sec, "wait"); err != nil {
		return nil, err
	}
	if sec.HasKey("shell") {
		shell, err := boolKey(sec, "shell")
		if err != nil {
			return nil, err
		}
		cfg.Shell = &shell
	}
	if sec.HasKey("rate") {
		if cfg.Rate, err = sec.Key("rate").Float64(); err != nil {
			return nil, errors.Wrapf(err, errors.CodeConfig, "job %q: rate", name)
		}
	}
	return build(name, cfg)
}

func boolKey(sec *ini.Section, key string) (bool, error) {
	if !sec.HasKey(key) {
		return false, nil
	}
	v, err := sec.Key(key).Bool()
	if err != nil {
		return false, errors.Wrapf(err, errors.CodeConfig, "job %q: %s", sec.Name(), key)
	}
	return v, nil
}
