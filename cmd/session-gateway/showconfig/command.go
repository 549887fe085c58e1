// Package showconfig prints the effective configuration.
package showconfig

import (
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/spf13/cobra"

	"github.com/openkcm/session-gateway/internal/cmdutils"
	"github.com/openkcm/session-gateway/internal/config"
)

const redacted = "<redacted>"

func Cmd(buildInfo string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Prints the configuration the commands would run with, defaults applied and embedded secrets redacted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdutils.LoadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			return Write(cmd.OutOrStdout(), cfg)
		},
	}
}

// Write renders cfg as YAML.
func Write(w io.Writer, cfg *config.Config) error {
	out := redact(*cfg)

	cfgMap := make(map[string]any)
	if err := mapstructure.Decode(out, &cfgMap); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	b, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	_, err = w.Write(b)
	return err
}

func redact(cfg config.Config) config.Config {
	cfg.Database.Password = redactRef(cfg.Database.Password)
	cfg.ValKey.Password = redactRef(cfg.ValKey.Password)

	return cfg
}

func redactRef(ref commoncfg.SourceRef) commoncfg.SourceRef {
	if ref.Value != "" {
		ref.Value = redacted
	}

	return ref
}
