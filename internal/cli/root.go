// Package cli provides the admin command line: session commands, collection
// listings, and the local console and development API servers.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-admin-session/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	applicationName = "admin"
	version         = "1.0.0"
	configName      = ".admin-cli"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	output  string
	verbose bool

	in     io.Reader
	reader *bufio.Reader
}

// NewRootCommand builds the command tree. Each invocation restores the
// persisted session first, the way a page reload would.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New(), in: os.Stdin}

	root := &cobra.Command{
		Use:   applicationName,
		Short: "Admin session client",
		Long: `admin signs in to the CRM admin API, keeps the session fresh, and lists
clients, tasks and payments. It can also serve a local console and an
in-memory development API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.in = cmd.InOrStdin()
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/"+configName+".yaml)")
	flags.StringVarP(&a.output, "output", "o", "table", "output format (table, json, yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.String("api-base", "", "REST API base URL")
	flags.String("storage", "", "session storage driver (file, memory, redis, sqlite)")
	flags.String("storage-path", "", "session file for the file driver")
	flags.String("env-file", ".env", "dotenv file loaded before configuration")

	_ = a.v.BindPFlag("API_BASE", flags.Lookup("api-base"))
	_ = a.v.BindPFlag("STORAGE_DRIVER", flags.Lookup("storage"))
	_ = a.v.BindPFlag("STORAGE_PATH", flags.Lookup("storage-path"))
	_ = a.v.BindPFlag("ENV_FILE", flags.Lookup("env-file"))

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.statusCommand(),
		a.profileCommand(),
		a.refreshCommand(),
		a.clientsCommand(),
		a.tasksCommand(),
		a.paymentsCommand(),
		a.summaryCommand(),
		a.consoleCommand(),
		a.devAPICommand(),
	)
	return root
}

// Execute runs the command line with ctx cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// initConfig reads the config file and .env, then configures logging.
func (a *app) initConfig() error {
	if err := config.LoadDotEnv(a.v.GetString("ENV_FILE")); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(configName)
	}
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	a.configureLogging()
	if used := a.v.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", filepath.Clean(used)).Msg("using config file")
	}
	return nil
}

// config resolves keys through viper, so flags, config file and environment
// all feed the same getters.
func (a *app) config() config.Config {
	return config.NewWithLookup(a.v.GetString)
}

func (a *app) configureLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(a.config().GetLogLevel()))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// readLine reads one trimmed line from the command's input.
func (a *app) readLine(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	line, err := a.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
