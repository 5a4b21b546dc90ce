package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/linuxmatters/jivemix/internal/cli"
	"github.com/linuxmatters/jivemix/internal/config"
	"github.com/linuxmatters/jivemix/internal/errors"
	"github.com/linuxmatters/jivemix/internal/logging"
)

var (
	version = "0.0.1"
)

// exitInterrupted is the status after Ctrl+C or SIGTERM.
const exitInterrupted = 130

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `short:"c" type:"path" help:"Path to TOML config file (optional)" placeholder:"path"`
	LogLevel  string `help:"Log level: debug, info, warn, error" placeholder:"level"`
	LogFormat string `help:"Log format: pretty or json" placeholder:"format"`
	LogFile   string `type:"path" help:"Write logs to this file" placeholder:"path"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Render  RenderCmd  `cmd:"" help:"Render a timeline to a WAV file"`
	Inspect InspectCmd `cmd:"" help:"Show the resolved timeline after scene expansion and auto-fix"`
	Slice   SliceCmd   `cmd:"" help:"Save the first seconds of an audio file with short fades"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// App is what every command's Run receives.
type App struct {
	Globals *Globals
	Config  *config.Config
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
}

// Logger builds the logger for a command. While the progress UI owns the
// terminal, logs go to the configured log file.
func (a *App) Logger(tui bool) (*slog.Logger, func() error, error) {
	opts := logging.Options{
		Level:  firstNonEmpty(a.Globals.LogLevel, a.Config.Logging.Level),
		Format: firstNonEmpty(a.Globals.LogFormat, a.Config.Logging.Format),
		File:   a.Globals.LogFile,
		Writer: a.Stderr,
		Color:  isTerminal(a.Stderr),
	}
	if tui && opts.File == "" {
		opts.File = firstNonEmpty(a.Config.Logging.File, logging.DefaultFile)
	}
	return logging.New(opts)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cliArgs := &CLI{}
	parser, err := kong.New(cliArgs,
		kong.Name("jivemix"),
		kong.Description("Timeline-driven podcast mixer"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 1
	}

	cfg, _, _, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{
		Globals: &cliArgs.Globals,
		Config:  cfg,
		Ctx:     ctx,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	if err := kctx.Run(app); err != nil {
		cli.PrintError(err.Error())
		if errors.Is(err, context.Canceled) {
			return exitInterrupted
		}
		return errors.ExitCode(err)
	}
	return 0
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run prints the version.
func (c *VersionCmd) Run(app *App) error {
	cli.PrintVersion(version)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func closeLogger(closeLog func() error) {
	if err := closeLog(); err != nil {
		cli.PrintError(fmt.Sprintf("close log: %v", err))
	}
}
