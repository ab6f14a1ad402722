package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/jobchain/internal/app"
	"gopkg.in/yaml.v3"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// inputFlags collects repeatable key=value run inputs.
type inputFlags map[string]any

func (f inputFlags) String() string { return fmt.Sprint(map[string]any(f)) }

func (f inputFlags) Set(v string) error {
	key, raw, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("input %q must look like name=value", v)
	}
	f[key] = ParseInputValue(raw)
	return nil
}

// ParseInputValue reads a command line value as a YAML scalar, so numbers and
// booleans keep their type. Anything that is not a plain scalar stays a string.
func ParseInputValue(raw string) any {
	if raw == "" {
		return ""
	}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil || len(node.Content) != 1 {
		return raw
	}
	n := node.Content[0]
	if n.Kind != yaml.ScalarNode {
		return raw
	}
	switch n.ShortTag() {
	case "!!int", "!!float", "!!bool":
		var v any
		if err := n.Decode(&v); err == nil {
			return v
		}
	case "!!null":
		return nil
	}
	return raw
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("jobchain", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
jobchain - Runs declarative job chains as a dependency graph.

Usage:
  jobchain [options] CHAIN
  jobchain -list [options]

Arguments:
  CHAIN
    Dotted chain name, e.g. "reports.daily" for reports/daily.yml.

Environment:
  JOB_CHAIN_CACHE       state store backend when -store is unset
  JOB_CHAIN_LIFETIME    run lifetime in seconds when -lifetime is unset
  JOBCHAIN_MINIO_*      object store access for s3:// roots and S3Put jobs
  JOBCHAIN_DATABASE_*   postgres state store connection
  JOBCHAIN_SOCKETIO_*   socket.io event broadcast

Options:
`)
		flagSet.PrintDefaults()
	}

	var paths stringList
	inputs := inputFlags{}
	flagSet.Var(&paths, "path", "Search root for chain files, a directory or s3://bucket/prefix. Repeatable; earlier roots win.")
	flagSet.Var(inputs, "input", "Run input as name=value. Repeatable.")
	correlationKey := flagSet.String("correlation-key", "", "Reuse the run started with the same key.")
	user := flagSet.String("user", "", "User the run belongs to, for user-scoped channels.")
	store := flagSet.String("store", "", "State store backend. Options: 'memory' or 'postgres'.")
	lifetime := flagSet.Duration("lifetime", 0, "How long run state is kept. 0 uses the chain's or the environment's value.")
	socketIOURL := flagSet.String("socketio-url", "", "Broadcast chain events to this socket.io server.")
	listFlag := flagSet.Bool("list", false, "List the chains found in the search roots and exit.")
	exportFlag := flagSet.String("export", "", "Print the chain in this format instead of running it. Options: 'yaml' or 'hcl'.")
	timeout := flagSet.Duration("timeout", 0, "Give up on the run after this long. 0 waits forever.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the executor.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	chain := flagSet.Arg(0)
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one chain name, got %d arguments", flagSet.NArg())}
	}
	if chain == "" && !*listFlag {
		slog.Debug("No chain provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		Chain:           chain,
		Paths:           paths,
		Inputs:          inputs,
		CorrelationKey:  *correlationKey,
		User:            *user,
		Store:           strings.ToLower(*store),
		Lifetime:        *lifetime,
		SocketIOURL:     *socketIOURL,
		List:            *listFlag,
		Export:          strings.ToLower(*exportFlag),
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
		Timeout:         *timeout,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "chain", config.Chain, "paths", config.Paths)
	return config, false, nil
}
