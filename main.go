package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackvity/filehandle/internal/config"
	"github.com/stackvity/filehandle/internal/filesystem"
	"github.com/stackvity/filehandle/internal/handle"
	"github.com/stackvity/filehandle/internal/template"
)

// Variables for version embedding via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes
const (
	ExitCodeSuccess     = 0
	ExitCodeIOError     = 1
	ExitCodeConfigError = 2
	ExitCodeInterrupt   = 3
	ExitCodeOpenError   = 4
	ExitCodeUnknown     = 10
)

var (
	opts *config.Options
	cli  *app
)

// exitError attaches an exit code to a command failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error { return &exitError{code: ExitCodeConfigError, err: err} }
func ioErr(err error) error { return &exitError{code: ExitCodeIOError, err: err} }

// exitCode maps an error returned by rootCmd to a process exit code.
// Interruption and open failures win over any code attached further out.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitCodeInterrupt
	}
	var openErr *handle.OpenError
	if errors.As(err, &openErr) {
		return ExitCodeOpenError
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	return ExitCodeUnknown
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fh",
	Short: "Inspect and manipulate single files line by line",
	Long: `fh opens one file at a time and reads, writes, seeks, truncates,
copies, renames or deletes it. Every subcommand works on exactly the
file named on the command line.

Running "fh cat <file>" prints a file line by line.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// initConfig() has already populated Viper. Now unmarshal into opts.
		if err := viper.Unmarshal(opts); err != nil {
			return configErr(fmt.Errorf("failed to unmarshal configuration: %w", err))
		}

		if err := opts.ValidateConfig(); err != nil {
			return configErr(err)
		}

		logLevel := slog.LevelInfo
		if opts.Verbose {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		logger.Debug("Configuration loaded and validated successfully", "options", *opts)

		fs := filesystem.NewRealFileSystem()

		var templateExec *template.Executor
		if opts.TemplateFile != "" {
			var err error
			templateExec, err = template.NewExecutor(opts.TemplateFile, fs)
			if err != nil {
				return configErr(err)
			}
			logger.Debug("Custom template executor initialized", "file", opts.TemplateFile)
		}

		cli = &app{opts: opts, logger: logger, fs: fs, exec: templateExec}
		return nil
	},
}

// Execute runs the root command with a context cancelled by SIGINT/SIGTERM and
// exits with the mapped exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	switch code {
	case ExitCodeSuccess:
		return
	case ExitCodeInterrupt:
		fmt.Fprintln(os.Stderr, "Interrupted.")
	case ExitCodeConfigError:
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func init() {
	opts = &config.Options{}
	cobra.OnInitialize(initConfig)

	// Configuration flags
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file path (default: .fh.yaml, fh.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose debug logging")

	// Behaviour flags
	rootCmd.PersistentFlags().StringVar(&opts.Perm, "perm", "0644", "Octal permission for files created by fh")
	rootCmd.PersistentFlags().BoolVarP(&opts.Force, "force", "f", false, "Let mv replace an existing destination")
	rootCmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "Output format for stat: text, yaml, toml or json")
	rootCmd.PersistentFlags().StringVar(&opts.TemplateFile, "template", "", "Path to a custom Go template for stat output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("fh version %s (commit: %s, built: %s)\n", version, commit, date))

	rootCmd.AddCommand(
		newCatCmd(),
		newReadCmd(),
		newLensCmd(),
		newStatCmd(),
		newWriteCmd(),
		newTruncateCmd(),
		newCopyCmd(),
		newMoveCmd(),
		newRemoveCmd(),
		newTailCmd(),
	)
}

// configNames are searched in the working directory, in order, when --config is not given.
var configNames = []string{".fh", "fh"}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	v := viper.New()

	// 1. Defaults
	v.SetDefault("perm", "0644")
	v.SetDefault("format", "text")
	v.SetDefault("watchConfig.debounce", config.DefaultDebounce.String())
	v.SetDefault("watchConfig.fromStart", false)

	// 2. Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("FH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 3. Config file
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading specified config file %s: %v\n", opts.ConfigFile, err)
			os.Exit(ExitCodeConfigError)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml") // Names have no extension
		for _, name := range configNames {
			v.SetConfigName(name)
			err := v.ReadInConfig()
			if err == nil {
				break
			}
			// Only a missing file lets the search continue.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", v.ConfigFileUsed(), err)
				os.Exit(ExitCodeConfigError)
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" && opts.Verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
	}

	// 4. Flags have the highest precedence when set.
	flags := rootCmd.PersistentFlags()
	if err := v.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Internal error binding flags to viper: %v\n", err)
		os.Exit(ExitCodeConfigError)
	}
	// The flag is --template but the option key is templateFile.
	if err := v.BindPFlag("templateFile", flags.Lookup("template")); err != nil {
		fmt.Fprintf(os.Stderr, "Internal error binding flags to viper: %v\n", err)
		os.Exit(ExitCodeConfigError)
	}

	// 5. Merge into the global viper instance used by PersistentPreRunE.
	if err := viper.MergeConfigMap(v.AllSettings()); err != nil {
		fmt.Fprintf(os.Stderr, "Internal error merging viper settings: %v\n", err)
		os.Exit(ExitCodeConfigError)
	}
}

func main() {
	Execute()
}
