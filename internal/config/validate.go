package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *RecorderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if len(c.Exchange.Products) == 0 {
		return errors.New("exchange.products must list at least one product")
	}
	for _, p := range c.Exchange.Products {
		if p == "" {
			return errors.New("exchange.products entries must be non-empty")
		}
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Journal.MaxSize < 4096 {
		return fmt.Errorf("journal.max_size must be >= 4096, got %d", c.Journal.MaxSize)
	}
	if c.Journal.RetentionDays < 1 {
		return errors.New("journal.retention_days must be >= 1")
	}

	if c.Writers.BatchSize < 1 {
		return errors.New("writers.batch_size must be >= 1")
	}
	if c.Writers.BufferSize < 1 {
		return errors.New("writers.buffer_size must be >= 1")
	}

	if c.Snapshots.Concurrency < 1 {
		return errors.New("snapshots.concurrency must be >= 1")
	}

	if _, err := ParseRunAt(c.Uploader.RunAt); err != nil {
		return fmt.Errorf("uploader.run_at: %w", err)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseRunAt parses an "HH:MM:SS" UTC wall-clock time into a Duration
// offset from midnight.
func ParseRunAt(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}
