package cli

import (
	"fmt"

	"github.com/idrk/project-data-sync/internal/config"
	"github.com/idrk/project-data-sync/pkg/log"
	"github.com/idrk/project-data-sync/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type GlobalOptions struct {
	LogLevel string

	cfg   *config.Config
	creds *config.Credentials
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.LogLevel, "log-level", "l", o.LogLevel, "Log level, overrides PROJECT_SYNC_LOG_LEVEL")
}

// Complete loads the configuration and the credentials. Nothing touches the
// network before both are known to be valid.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}

	creds, err := config.LoadCredentials(cfg)
	if err != nil {
		return err
	}

	o.cfg, o.creds = cfg, creds
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

// InitLogger installs the global logger. The returned func flushes and restores it.
func (o *GlobalOptions) InitLogger() func() {
	level := "info"
	if o.cfg != nil {
		level = o.cfg.LogLevel
	}
	logger := log.InitLog(log.LevelFromString(level), zap.String("version", version.Get().GitVersion))
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}
}
