package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"

	"github.com/gitrdm/causalkernel/pkg/kernel"
)

// cliConfig is the union of kernel.Config and the run command's own
// operational flags, loaded the way tomtom215-cartographus layers a
// YAML config file under environment overrides: koanf.Load(file...)
// first, then koanf.Load(env...) on top.
type cliConfig struct {
	Seed    string        `koanf:"seed"`
	Listen  string        `koanf:"listen"`
	Persist string        `koanf:"persist"`

	MaxForwardChainDepth    int           `koanf:"max_forward_chain_depth"`
	ForwardChainDeadline    time.Duration `koanf:"forward_chain_deadline"`
	ModelPromotionThreshold float64       `koanf:"model_promotion_threshold"`
	TickInterval            time.Duration `koanf:"tick_interval"`
}

func defaultCLIConfig() cliConfig {
	def := kernel.DefaultConfig()
	return cliConfig{
		Seed:                    "blocksworld",
		MaxForwardChainDepth:    def.MaxForwardChainDepth,
		ForwardChainDeadline:    def.ForwardChainDeadline,
		ModelPromotionThreshold: def.ModelPromotionThreshold,
		TickInterval:            def.TickInterval,
	}
}

// loadConfig layers defaults < config file (if present) < CAUSALKERNEL_
// environment variables < explicit CLI flags (applied by the caller
// after loadConfig returns). mapstructure only overwrites fields
// present in a loaded source, so out starts from defaultCLIConfig and
// only the keys the file/environment actually set change.
func loadConfig(configPath string) (cliConfig, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return cliConfig{}, err
		}
	}

	if err := k.Load(env.Provider("CAUSALKERNEL_", ".", envKeyToKoanf), nil); err != nil {
		return cliConfig{}, err
	}

	out := defaultCLIConfig()
	err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	})
	if err != nil {
		return cliConfig{}, err
	}
	return out, nil
}

// envKeyToKoanf turns CAUSALKERNEL_TICK_INTERVAL into tick_interval.
func envKeyToKoanf(s string) string {
	s = strings.TrimPrefix(s, "CAUSALKERNEL_")
	return strings.ToLower(s)
}

func (c cliConfig) kernelConfig() kernel.Config {
	return kernel.Config{
		MaxForwardChainDepth:    c.MaxForwardChainDepth,
		ForwardChainDeadline:    c.ForwardChainDeadline,
		ModelPromotionThreshold: c.ModelPromotionThreshold,
		TickInterval:            c.TickInterval,
	}
}
