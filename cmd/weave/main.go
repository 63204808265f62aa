package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/weaver/artifact"
	"github.com/wippyai/weaver/builtin"
	"github.com/wippyai/weaver/config"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/vm"
	"github.com/wippyai/weaver/weave"
)

type options struct {
	input       string
	configFile  string
	output      string
	verbose     bool
	dump        bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "Weaving configuration (TOML)")
	flag.StringVar(&opts.output, "o", "", "Write the woven artifact to this path")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.BoolVar(&opts.dump, "dump", false, "Print the woven methods")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: weave [-config weave.toml] [-o out.wvr] [-v] [-dump] <artifact>")
		fmt.Fprintln(os.Stderr, "       weave -config weave.toml -i <artifact>  (interactive mode)")
		os.Exit(1)
	}
	opts.input = flag.Arg(0)

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdout io.Writer) error {
	cfg := &config.Config{}
	if opts.configFile != "" {
		c, err := config.Load(opts.configFile)
		if err != nil {
			return err
		}
		cfg = c
	}
	if opts.output == "" {
		opts.output = cfg.Output
	}

	log, err := newLogger(cfg, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	weave.SetLogger(log.Named("weave"))
	vm.SetLogger(log.Named("vm"))

	a, err := artifact.Load(opts.input)
	if err != nil {
		return err
	}

	reg, trace := builtin.Registry(log.Named("aspect"))
	bindings, err := cfg.Bindings(reg)
	if err != nil {
		return err
	}

	report, err := weave.New(cfg.Weave()).WeaveModule(a.Module, bindings)
	if err != nil {
		return err
	}
	log.Info("weaving finished",
		zap.String("artifact", opts.input),
		zap.Strings("woven", report.Woven),
		zap.Int("failures", len(report.Failures)),
	)

	if opts.dump {
		for _, m := range a.Module.Methods {
			fmt.Fprintln(stdout, ir.Format(m))
		}
	}

	if opts.output != "" {
		if err := artifact.Save(opts.output, a); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s (%d woven, %d failed)\n", opts.output, len(report.Woven), len(report.Failures))
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return stderrors.New("interactive mode requires a terminal")
		}
		if err := runInteractive(opts.input, a.Module, reg, trace); err != nil {
			return err
		}
	}

	return report.Err()
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
