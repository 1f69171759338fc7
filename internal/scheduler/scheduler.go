// Package scheduler runs the daily tier computation on a fixed wall-clock
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/optispark/tiercast/internal/pipeline"
)

// Job is one scheduled computation.
type Job struct {
	Name    string `yaml:"name"`
	At      string `yaml:"at"` // wall-clock "HH:MM", evaluated in Timezone
	Enabled bool   `yaml:"enabled"`
}

// Config holds the scheduler settings.
type Config struct {
	Jobs     []Job  `yaml:"jobs"`
	Timezone string `yaml:"timezone"`
}

// JobResult records one execution.
type JobResult struct {
	JobName   string        `yaml:"job_name"`
	StartTime time.Time     `yaml:"start_time"`
	Duration  time.Duration `yaml:"duration"`
	Success   bool          `yaml:"success"`
	Error     string        `yaml:"error,omitempty"`
}

// Scheduler drives the pipeline from a job table.
type Scheduler struct {
	config Config
	loc    *time.Location
	runner *pipeline.Runner
	log    zerolog.Logger
}

// New loads the job table from a YAML file and prepares a scheduler.
func New(configPath string, runner *pipeline.Runner, log zerolog.Logger) (*Scheduler, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		config: cfg,
		loc:    loc,
		runner: runner,
		log:    log.With().Str("component", "scheduler").Logger(),
	}, nil
}

func loadConfig(configPath string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if len(cfg.Jobs) == 0 {
		cfg.Jobs = []Job{{Name: "daily-tiers", At: "22:30", Enabled: true}}
	}
	return cfg, nil
}

// Jobs returns the configured job table.
func (s *Scheduler) Jobs() []Job {
	return s.config.Jobs
}

// Start blocks, firing each enabled job at its wall-clock time once per day,
// until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info().Int("jobs", len(s.config.Jobs)).Str("timezone", s.config.Timezone).Msg("scheduler starting")

	fired := make(map[string]string) // job name -> last date fired

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			local := now.In(s.loc)
			today := local.Format("2006-01-02")
			hhmm := local.Format("15:04")

			for _, job := range s.config.Jobs {
				if !job.Enabled || hhmm < job.At || fired[job.Name] == today {
					continue
				}
				fired[job.Name] = today
				result := s.RunJob(ctx, job.Name)
				if !result.Success {
					s.log.Error().Str("job", job.Name).Str("error", result.Error).Msg("scheduled run failed")
				}
			}
		}
	}
}

// RunJob executes one job immediately against the latest observation date.
func (s *Scheduler) RunJob(ctx context.Context, jobName string) *JobResult {
	result := &JobResult{JobName: jobName, StartTime: time.Now()}

	s.log.Info().Str("job", jobName).Msg("executing job")

	date, err := s.runner.ResolveDate(ctx, "")
	if err == nil {
		_, err = s.runner.Run(ctx, date)
	}

	result.Duration = time.Since(result.StartTime)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	s.log.Info().Str("job", jobName).Dur("duration", result.Duration).Msg("job completed")
	return result
}
