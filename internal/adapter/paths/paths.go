// Package paths resolves the data and mask directories for a model run,
// either from the conventional storage layout on the analysis hosts or from
// environment variables everywhere else.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted when the storage convention does not
// apply.
const (
	EnvData = "DATA_PATH"
	EnvMask = "MASK_PATH"
)

const storageRoot = "/mnt/storage0"

// userByCode maps the owner initials embedded in a run name to the storage
// account holding that run.
var userByCode = map[string]string{
	"JM": "jmarson",
	"PM": "jmarson",
	"MC": "madhurima",
	"EE": "emilio",
}

// Paths holds the resolved locations for one run.
type Paths struct {
	// Data is the directory holding the simulation output files.
	Data string
	// Mask is the directory holding the land/sea mask resource.
	Mask string
}

// Config controls how locations are resolved. The zero value consults the
// real hostname and environment.
type Config struct {
	// Hostname reports the machine name; defaults to os.Hostname.
	Hostname func() (string, error)
	// Getenv reads environment variables; defaults to os.Getenv.
	Getenv func(string) string
	// ForceEnv skips the storage convention even on an analysis host,
	// for pointing at a local copy of a run.
	ForceEnv bool
}

func (c Config) hostname() string {
	fn := c.Hostname
	if fn == nil {
		fn = os.Hostname
	}
	name, err := fn()
	if err != nil {
		return ""
	}
	return name
}

func (c Config) getenv(key string) string {
	if c.Getenv != nil {
		return c.Getenv(key)
	}
	return os.Getenv(key)
}

// ConfigError reports environment variables that must be set before
// resolution can succeed.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	hints := make([]string, len(e.Missing))
	for i, name := range e.Missing {
		hints[i] = fmt.Sprintf("export %s=/path/to/%s/", name, strings.ToLower(strings.TrimSuffix(name, "_PATH")))
	}
	return fmt.Sprintf("missing environment variable(s) %s; set them first (%s)",
		strings.Join(e.Missing, ", "), strings.Join(hints, "; "))
}

// RunNameError reports a run identifier that does not follow the
// <MODEL>-<cfg/user/id> convention, or whose owner initials are unknown.
type RunNameError struct {
	Run    string
	Reason string
}

func (e *RunNameError) Error() string {
	return fmt.Sprintf("invalid run name %q: %s (expected something like ANHA4-WJM000)", e.Run, e.Reason)
}

// Resolve returns the data and mask directories for runName. On hosts whose
// name contains "portal" the conventional /mnt/storage0 layout is derived
// from the run name. Everywhere else, when runName is empty, or when
// cfg.ForceEnv is set, both locations come from the DATA_PATH and MASK_PATH
// environment variables instead.
func Resolve(runName string, cfg Config) (Paths, error) {
	if runName != "" && !cfg.ForceEnv && strings.Contains(cfg.hostname(), "portal") {
		return resolveStorage(runName)
	}
	return resolveEnv(cfg)
}

func resolveEnv(cfg Config) (Paths, error) {
	p := Paths{Data: cfg.getenv(EnvData), Mask: cfg.getenv(EnvMask)}
	var missing []string
	if p.Data == "" {
		missing = append(missing, EnvData)
	}
	if p.Mask == "" {
		missing = append(missing, EnvMask)
	}
	if len(missing) > 0 {
		return Paths{}, &ConfigError{Missing: missing}
	}
	return p, nil
}

// resolveStorage derives the conventional locations:
//
//	/mnt/storage0/<user>/NEMO/<model>/<run>-S    simulation output
//	/mnt/storage0/<user>/ANALYSES/MASKS          mask resources
func resolveStorage(runName string) (Paths, error) {
	user, err := UserForRun(runName)
	if err != nil {
		return Paths{}, err
	}
	model := strings.SplitN(runName, "-", 2)[0]
	return Paths{
		Data: filepath.Join(storageRoot, user, "NEMO", model, runName+"-S"),
		Mask: filepath.Join(storageRoot, user, "ANALYSES", "MASKS"),
	}, nil
}

// UserForRun extracts the owner account from a run name such as
// ANHA4-WJM004: the two letters after the configuration letter are the
// owner's initials.
func UserForRun(runName string) (string, error) {
	switch {
	case !strings.Contains(runName, "-"):
		return "", &RunNameError{Run: runName, Reason: "missing '-' separator"}
	case !strings.Contains(runName, "ANHA"):
		return "", &RunNameError{Run: runName, Reason: "not an ANHA run"}
	case len(runName) != 12:
		return "", &RunNameError{Run: runName, Reason: "wrong length"}
	}
	tail := strings.SplitN(runName, "-", 2)[1]
	if len(tail) < 3 {
		return "", &RunNameError{Run: runName, Reason: "run token too short"}
	}
	code := strings.ToUpper(tail[1:3])
	user, ok := userByCode[code]
	if !ok {
		return "", &RunNameError{Run: runName, Reason: fmt.Sprintf("unrecognized owner initials %q", code)}
	}
	return user, nil
}
