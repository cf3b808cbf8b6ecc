package ffshm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// EnvName carries the segment name to the solver process.
	EnvName = "FF_SHM_NAME"
	// EnvSize carries the segment size in decimal bytes.
	EnvSize = "FF_SHM_SIZE"

	// DefaultSize is used when a Config leaves Size unset.
	DefaultSize = 1 << 20

	// sessionPrefix prefixes names minted by NewSessionName.
	sessionPrefix = "pyfreefem_"
)

// Config names a segment and its size.
type Config struct {
	Name string
	// Size is the total segment size in bytes, header included. Zero
	// selects DefaultSize. Attach ignores it.
	Size int
}

// NewSessionName returns a fresh segment name of the form pyfreefem_<hex>.
// Distinct names can still hash to the same SysV key.
func NewSessionName() string {
	return sessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ConfigFromEnv reads FF_SHM_NAME and FF_SHM_SIZE through lookup
// (os.LookupEnv when nil). A missing size yields DefaultSize.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	name, ok := lookup(EnvName)
	if !ok || name == "" {
		return Config{}, fmt.Errorf("%w: %s is not set", ErrInvalidArgument, EnvName)
	}
	cfg := Config{Name: name, Size: DefaultSize}
	if raw, ok := lookup(EnvSize); ok && strings.TrimSpace(raw) != "" {
		size, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("%w: %s=%q is not a positive byte count", ErrInvalidArgument, EnvSize, raw)
		}
		cfg.Size = size
	}
	return cfg, nil
}

// Environ returns the NAME=value pairs a child process needs to attach.
func (c Config) Environ() []string {
	return []string{
		EnvName + "=" + c.Name,
		EnvSize + "=" + strconv.Itoa(c.size()),
	}
}

func (c Config) size() int {
	if c.Size == 0 {
		return DefaultSize
	}
	return c.Size
}

func (c Config) validate(headerSize int) error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty segment name", ErrInvalidArgument)
	}
	if c.size() <= headerSize {
		return fmt.Errorf("%w: size %d must exceed header size %d", ErrInvalidArgument, c.size(), headerSize)
	}
	return nil
}
