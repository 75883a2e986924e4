// Package config assembles the parameters of a replay from built-in
// defaults, the environment, a .env file and a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/stats"
)

// DefaultEnvFile is read when present. Other env files must exist.
const DefaultEnvFile = ".env"

// Environment variables understood by ApplyEnv.
const (
	EnvC1      = "CACHESIM_C1"
	EnvC2      = "CACHESIM_C2"
	EnvB       = "CACHESIM_B"
	EnvS       = "CACHESIM_S"
	EnvL1Time  = "CACHESIM_L1_TIME"
	EnvL2Time  = "CACHESIM_L2_TIME"
	EnvMemTime = "CACHESIM_MEM_TIME"
)

var envKeys = []string{EnvC1, EnvC2, EnvB, EnvS, EnvL1Time, EnvL2Time, EnvMemTime}

// Config is everything needed to build a cache hierarchy.
type Config struct {
	Geometry geometry.Geometry `yaml:",inline"`
	Latency  stats.Latency     `yaml:",inline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Geometry: geometry.Default(),
		Latency:  stats.DefaultLatency(),
	}
}

// Load starts from the defaults, then applies envFile and the process
// environment, then yamlFile if it is not empty. The result is not
// validated, so that flags can still be applied on top.
func Load(envFile, yamlFile string) (Config, error) {
	c := Default()

	vars, err := ReadEnv(envFile)
	if err != nil {
		return c, err
	}

	err = c.ApplyEnv(vars)
	if err != nil {
		return c, err
	}

	if yamlFile != "" {
		err = c.LoadYAML(yamlFile)
		if err != nil {
			return c, err
		}
	}

	return c, nil
}

// ReadEnv collects the cachesim variables from envFile and the process
// environment. The process environment wins. A missing DefaultEnvFile is
// not an error; an empty envFile skips the file.
func ReadEnv(envFile string) (map[string]string, error) {
	vars := make(map[string]string)

	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)

		switch {
		case errors.Is(err, fs.ErrNotExist) && envFile == DefaultEnvFile:
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		default:
			vars = fileVars
		}
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	return vars, nil
}

// ApplyEnv overrides the fields named by the cachesim variables in vars.
// Unrelated variables are ignored.
func (c *Config) ApplyEnv(vars map[string]string) error {
	targets := map[string]*uint64{
		EnvC1:      &c.Geometry.C1,
		EnvC2:      &c.Geometry.C2,
		EnvB:       &c.Geometry.B,
		EnvS:       &c.Geometry.S,
		EnvL1Time:  &c.Latency.L1,
		EnvL2Time:  &c.Latency.L2,
		EnvMemTime: &c.Latency.Memory,
	}

	for _, key := range envKeys {
		value, ok := vars[key]
		if !ok || value == "" {
			continue
		}

		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}

		*targets[key] = n
	}

	return nil
}

// LoadYAML overrides the fields present in the YAML file at path.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err = decoder.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return nil
}

// Validate checks that the geometry can be simulated.
func (c Config) Validate() error {
	err := c.Geometry.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// WriteYAML writes the configuration in the format read by LoadYAML.
func (c Config) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	err := encoder.Encode(c)
	if err != nil {
		return err
	}

	return encoder.Close()
}
