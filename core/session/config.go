package session

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"

	"github.com/mistvale/vshell/core/eval"
)

// FileConfig is the on-disk YAML shape of a session configuration,
// grounded on the teacher's core/config.Configuration: JSON-tagged
// fields (sigs.k8s.io/yaml unmarshals YAML through the JSON tags) with
// go-playground/validator struct tags for semantic checks Load runs
// before handing back a usable Config.
type FileConfig struct {
	Files          map[string]string `json:"files"`
	Env            map[string]string `json:"env"`
	Cwd            string            `json:"cwd" validate:"required"`
	NetworkEnabled bool              `json:"network_enabled"`
	Limits         FileLimits        `json:"limits"`
}

// FileLimits mirrors eval.LimitOverrides with a YAML-friendly duration
// string in place of time.Duration, which sigs.k8s.io/yaml cannot
// unmarshal directly.
type FileLimits struct {
	MaxStatements     int    `json:"max_statements" validate:"gte=0"`
	MaxCallDepth      int    `json:"max_call_depth" validate:"gte=0"`
	MaxLoopIterations int    `json:"max_loop_iterations" validate:"gte=0"`
	MaxWallClock      string `json:"max_wall_clock"`
	MaxVFSBytes       int64  `json:"max_vfs_bytes" validate:"gte=0"`
	MaxPipeBuffer     int    `json:"max_pipe_buffer" validate:"gte=0"`
}

// Validate runs go-playground/validator over the loaded configuration,
// the same tag-driven check the teacher's Configuration.Validate does.
func (c *FileConfig) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return validate.Struct(c)
}

// LoadConfig parses YAML config bytes into a Config ready for New,
// grounded on the teacher's core/config.Load (sigs.k8s.io/yaml.UnmarshalStrict
// against a JSON-tagged struct) plus its Configuration.Validate step.
func LoadConfig(data []byte) (Config, error) {
	var fc FileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return Config{}, fmt.Errorf("session: parse config: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return Config{}, fmt.Errorf("session: invalid config: %w", err)
	}

	cfg := Config{
		Files:          make(map[string][]byte, len(fc.Files)),
		Env:            fc.Env,
		Cwd:            fc.Cwd,
		NetworkEnabled: fc.NetworkEnabled,
		Limits: eval.LimitOverrides{
			MaxStatements:     fc.Limits.MaxStatements,
			MaxCallDepth:      fc.Limits.MaxCallDepth,
			MaxLoopIterations: fc.Limits.MaxLoopIterations,
			MaxVFSBytes:       fc.Limits.MaxVFSBytes,
			MaxPipeBuffer:     fc.Limits.MaxPipeBuffer,
		},
	}
	for p, body := range fc.Files {
		cfg.Files[p] = []byte(body)
	}
	if fc.Limits.MaxWallClock != "" {
		d, err := time.ParseDuration(fc.Limits.MaxWallClock)
		if err != nil {
			return Config{}, fmt.Errorf("session: invalid max_wall_clock: %w", err)
		}
		cfg.Limits.MaxWallClock = d
	}
	return cfg, nil
}
