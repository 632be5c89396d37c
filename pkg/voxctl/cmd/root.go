package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxterm/voxctl/pkg/voxctl/auth"
	"github.com/voxterm/voxctl/pkg/voxctl/config"
)

type Config struct {
	SettingsPath string
	OutputWriter io.Writer
}

type runtimeState struct {
	settingsPath string
	settings     *config.Settings
	outputFormat string
	verbose      bool
	writer       io.Writer
	logger       *zap.Logger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		SettingsPath: config.DefaultSettingsPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{settingsPath: cfg.SettingsPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:           "voxctl",
		Short:         "Voice front-end companion for Claude Code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.settingsPath == "" {
				rt.settingsPath = config.DefaultSettingsPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("VOXCTL_OUTPUT")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("VOXCTL_VERBOSE"), "true")
			}

			settings, err := config.LoadSettings(rt.settingsPath)
			if err != nil {
				if !os.IsNotExist(err) {
					return err
				}
				defaults := config.DefaultSettings()
				settings = &defaults
			}
			rt.settings = settings
			if rt.outputFormat == "" {
				rt.outputFormat = settings.OutputFormat
			}

			rt.logger = zap.NewNop()
			if rt.verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				rt.logger = logger
			}

			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.settingsPath, "config", rt.settingsPath, "Path to voxctl settings file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		NewAuthCommand(),
		NewDoctorCommand(),
		NewVersionCommand(),
	)
	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	if cmd.Context() == nil {
		return nil, errors.New("command context not initialized")
	}
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	return rt.writer
}

// newResolver wires the engine against the real config-root paths and the
// platform credential store.
func (rt *runtimeState) newResolver() *auth.Resolver {
	return auth.NewResolver(auth.ResolverConfig{
		CredentialsPath: config.CredentialsPath(),
		Service:         config.KeychainService(),
		Account:         config.KeychainAccount(),
	}, rt.logger)
}
