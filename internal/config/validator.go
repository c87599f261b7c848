package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "history.max_items")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// programNameRegex keeps program_name usable as a single path component
var programNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProgramName()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateHistory()...)
	errors = append(errors, c.validateRestore()...)
	errors = append(errors, c.validateWorkers()...)
	errors = append(errors, c.validateRecent()...)
	errors = append(errors, c.validateLogging()...)

	if c.Shutdown.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "shutdown.timeout_seconds",
			Value:   c.Shutdown.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateProgramName() []ValidationError {
	if c.ProgramName == "" || programNameRegex.MatchString(c.ProgramName) {
		return nil
	}
	return []ValidationError{{
		Field:   "program_name",
		Value:   c.ProgramName,
		Message: "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'",
	}}
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	fields := []struct {
		name  string
		value string
	}{
		{"paths.cache_dir", c.Paths.CacheDir},
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.config_dir", c.Paths.ConfigDir},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if strings.ContainsRune(f.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   f.name,
				Value:   f.value,
				Message: "path contains invalid null character",
			})
			continue
		}
		if !filepath.IsAbs(f.value) && f.value != "~" && !strings.HasPrefix(f.value, "~/") {
			errors = append(errors, ValidationError{
				Field:   f.name,
				Value:   f.value,
				Message: "must be an absolute path or start with ~/",
			})
		}
	}

	return errors
}

func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	if c.History.MaxItems < 1 {
		errors = append(errors, ValidationError{
			Field:   "history.max_items",
			Value:   c.History.MaxItems,
			Message: "must be at least 1",
		})
	}

	const maxItemsLimit = 10000
	if c.History.MaxItems > maxItemsLimit {
		errors = append(errors, ValidationError{
			Field:   "history.max_items",
			Value:   c.History.MaxItems,
			Message: fmt.Sprintf("exceeds maximum of %d", maxItemsLimit),
		})
	}

	if c.History.MaxPerTarget < 1 {
		errors = append(errors, ValidationError{
			Field:   "history.max_per_target",
			Value:   c.History.MaxPerTarget,
			Message: "must be at least 1",
		})
	}

	if c.History.MaxFileSizeMB < 1 || c.History.MaxFileSizeMB > 1024 {
		errors = append(errors, ValidationError{
			Field:   "history.max_file_size_mb",
			Value:   c.History.MaxFileSizeMB,
			Message: "must be between 1 and 1024",
		})
	}

	if c.History.ChainLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "history.chain_lines",
			Value:   c.History.ChainLines,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateRestore() []ValidationError {
	if c.Restore.MaxFiles < 0 {
		return []ValidationError{{
			Field:   "restore.max_files",
			Value:   c.Restore.MaxFiles,
			Message: "must be non-negative",
		}}
	}
	return nil
}

func (c *Config) validateWorkers() []ValidationError {
	var errors []ValidationError

	if c.Workers.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "workers.pool_size",
			Value:   c.Workers.PoolSize,
			Message: "must be at least 1",
		})
	}

	const maxPoolSize = 256
	if c.Workers.PoolSize > maxPoolSize {
		errors = append(errors, ValidationError{
			Field:   "workers.pool_size",
			Value:   c.Workers.PoolSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxPoolSize),
		})
	}

	return errors
}

func (c *Config) validateRecent() []ValidationError {
	if c.Recent.LockTimeoutMs < 0 {
		return []ValidationError{{
			Field:   "recent.lock_timeout_ms",
			Value:   c.Recent.LockTimeoutMs,
			Message: "must be non-negative",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		return []ValidationError{{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		}}
	}
	return nil
}
