package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watcherd/internal/config"
	"github.com/listenupapp/watcherd/internal/job"
	"github.com/listenupapp/watcherd/internal/logger"
)

// Jobs holds the jobs loaded from the jobs file.
type Jobs struct {
	Path string
	Jobs []*job.Job
	// Skipped counts records that were reported and dropped.
	Skipped int
}

// ProvideJobs loads the jobs file. The default jobs file is created empty
// when missing. Invalid records are logged and skipped.
func ProvideJobs(i do.Injector) (*Jobs, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Jobs.IsDefault {
		created, err := job.EnsureFile(cfg.Jobs.Path)
		if err != nil {
			return nil, err
		}
		if created {
			log.Info("created empty jobs file", "path", cfg.Jobs.Path)
		}
	}

	jobs, jobErrs, err := job.LoadFile(cfg.Jobs.Path)
	if err != nil {
		return nil, err
	}
	for _, jerr := range jobErrs {
		log.Error("job skipped", "error", jerr)
	}

	log.Info("jobs loaded", "path", cfg.Jobs.Path, "jobs", len(jobs), "skipped", len(jobErrs))

	return &Jobs{Path: cfg.Jobs.Path, Jobs: jobs, Skipped: len(jobErrs)}, nil
}
