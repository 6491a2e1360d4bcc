// byok is the command-line host adapter for the local inference daemon
// bridge: model discovery, load state management and streamed chat against
// a Foundry Local style daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pierceboggan/byok-foundry-local/config"
	"github.com/pierceboggan/byok-foundry-local/core"
)

var (
	Version string // Version will be set during the build process
)

const usage = `Usage: byok [flags] <command> [args]

Commands:
  status            Show daemon reachability and loaded model summary
  models            List the cached model catalog (refreshing if stale)
  refresh           Force a catalog refresh against the daemon
  load [model-id]   Load a model's weights (picker when no id given)
  unload [model-id] Unload a model's weights (picker when no id given)
  default [model-id]
                    Mark the default chat model (picker when no id given)
  chat <prompt>     Stream a one-shot chat completion to the terminal

Flags:
`

func main() {
	configFlag := flag.String("config", "", "Path to the config file (default ~/.config/byok/config.yaml)")
	logLevelFlag := flag.String("log-level", "", "Override the configured log level")
	versionFlag := flag.Bool("v", false, "Print the version and exit")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		fmt.Println(Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := core.NewBridgeService(core.ServiceConfig{
		ConfigPath: *configFlag,
		LogLevel:   *logLevelFlag,
		Context:    ctx,
	})
	if err != nil {
		fmt.Println(renderError(err))
		os.Exit(1)
	}
	defer service.Close()

	command, rest := args[0], args[1:]
	if err := dispatch(ctx, service, command, rest); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Println(renderError(err))
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, service *core.BridgeService, command string, args []string) error {
	switch command {
	case "status":
		return runStatus(ctx, service)
	case "models":
		return runModels(ctx, service, false)
	case "refresh":
		return runModels(ctx, service, true)
	case "load":
		return runSetLoaded(ctx, service, args, true)
	case "unload":
		return runSetLoaded(ctx, service, args, false)
	case "default":
		return runSetDefault(ctx, service, args)
	case "chat":
		return runChat(ctx, service, strings.Join(args, " "))
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runModels(ctx context.Context, service *core.BridgeService, force bool) error {
	models, err := service.Registry().Refresh(ctx, force)
	if err != nil {
		// A malformed catalog still leaves a usable stale list; show it
		// alongside the failure.
		fmt.Println(renderError(err))
	}
	if len(models) == 0 {
		fmt.Println("No models reported by the daemon.")
		return nil
	}
	renderModelTable(os.Stdout, models)
	return nil
}

func runSetLoaded(ctx context.Context, service *core.BridgeService, args []string, load bool) error {
	registry := service.Registry()
	if _, err := registry.Refresh(ctx, false); err != nil {
		return err
	}

	verb := "load"
	if !load {
		verb = "unload"
	}

	id, err := resolveModelArg(registry, args, verb, func(m core.Model) bool {
		return m.IsLoaded != load
	})
	if err != nil {
		return err
	}

	var ok bool
	if load {
		ok, err = registry.LoadModel(ctx, id)
	} else {
		ok, err = registry.UnloadModel(ctx, id)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("daemon refused to %s model %s", verb, id)
	}

	fmt.Printf("Model %s %sed.\n", successStyle.Render(id), verb)
	return nil
}

func runSetDefault(ctx context.Context, service *core.BridgeService, args []string) error {
	registry := service.Registry()
	if _, err := registry.Refresh(ctx, false); err != nil {
		return err
	}

	id, err := resolveModelArg(registry, args, "set as default", func(m core.Model) bool {
		return m.IsLoaded
	})
	if err != nil {
		return err
	}

	if err := registry.SetDefaultModel(id); err != nil {
		return err
	}
	fmt.Printf("Default model set to %s.\n", successStyle.Render(id))
	return nil
}

// resolveModelArg returns the explicit id argument, or opens an interactive
// picker over the models matching the filter. An explicit id bypasses the
// filter so scripted use can retry e.g. a load the cache believes is done.
func resolveModelArg(registry *core.ModelRegistry, args []string, verb string, filter func(core.Model) bool) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	candidates := make([]core.Model, 0)
	for _, m := range registry.Models() {
		if filter(m) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no models available to %s", verb)
	}

	return pickModel(fmt.Sprintf("Select a model to %s", verb), candidates)
}

// renderError turns bridge errors into actionable terminal output.
func renderError(err error) string {
	var confErr *config.ConfigurationError
	if errors.As(err, &confErr) {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err)) +
			fmt.Sprintf("\nFix the %q setting in ~/.config/byok/config.yaml (or the BYOK_%s environment variable) and retry.",
				confErr.Field, strings.ToUpper(confErr.Field))
	}

	var unreachable *core.UnreachableError
	if errors.As(err, &unreachable) {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err)) +
			"\nCheck that the local inference daemon is running, or run `byok status`."
	}

	return errorStyle.Render(fmt.Sprintf("Error: %v", err))
}
