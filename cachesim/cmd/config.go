package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/stats"
)

// configFlags are the flags that shape the simulated hierarchy. A flag only
// overrides the configuration files when it is given explicitly.
type configFlags struct {
	configFile string
	envFile    string

	c1, c2, b, s uint64

	l1Time, l2Time, memTime uint64
}

var flagAliases = map[string]string{
	"c1": "l1-size",
	"c2": "l2-size",
}

func aliasNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}

	return pflag.NormalizedName(name)
}

func (f *configFlags) register(flags *pflag.FlagSet) {
	flags.SetNormalizeFunc(aliasNormalizeFunc)

	flags.StringVar(&f.configFile, "config", "",
		"YAML file with the cache configuration")
	flags.StringVar(&f.envFile, "env-file", config.DefaultEnvFile,
		"File with CACHESIM_* variables; empty to skip")

	flags.Uint64Var(&f.c1, "l1-size", geometry.DefaultC1,
		"log2 of the L1 capacity in bytes (alias --c1)")
	flags.Uint64Var(&f.c2, "l2-size", geometry.DefaultC2,
		"log2 of the L2 capacity in bytes (alias --c2)")
	flags.Uint64VarP(&f.b, "block-size", "b", geometry.DefaultB,
		"log2 of the block size in bytes")
	flags.Uint64VarP(&f.s, "blocks-per-set", "s", geometry.DefaultS,
		"log2 of the L2 associativity")

	flags.Uint64Var(&f.l1Time, "l1-time", stats.DefaultL1AccessTime,
		"L1 access time")
	flags.Uint64Var(&f.l2Time, "l2-time", stats.DefaultL2AccessTime,
		"L2 access time")
	flags.Uint64Var(&f.memTime, "mem-time", stats.DefaultMemoryAccessTime,
		"Memory access time")
}

// load builds the configuration from defaults, env, the YAML file and the
// explicitly set flags, in that order, and validates it.
func (f *configFlags) load(flags *pflag.FlagSet) (config.Config, error) {
	c, err := config.Load(f.envFile, f.configFile)
	if err != nil {
		return c, err
	}

	overrides := []struct {
		name  string
		value uint64
		dst   *uint64
	}{
		{"l1-size", f.c1, &c.Geometry.C1},
		{"l2-size", f.c2, &c.Geometry.C2},
		{"block-size", f.b, &c.Geometry.B},
		{"blocks-per-set", f.s, &c.Geometry.S},
		{"l1-time", f.l1Time, &c.Latency.L1},
		{"l2-time", f.l2Time, &c.Latency.L2},
		{"mem-time", f.memTime, &c.Latency.Memory},
	}

	for _, o := range overrides {
		if flags.Changed(o.name) {
			*o.dst = o.value
		}
	}

	return c, c.Validate()
}

func newConfigCommand() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML.",
		Long: `Print the configuration that "cachesim run" would use with ` +
			`the same flags, after applying defaults, the env file, the ` +
			`environment, the YAML file and the flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := flags.load(cmd.Flags())
			if err != nil {
				return err
			}

			return c.WriteYAML(cmd.OutOrStdout())
		},
	}

	flags.register(cmd.Flags())

	return cmd
}
