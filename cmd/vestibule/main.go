package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/vestibule/internal/config"
	"github.com/mattjoyce/vestibule/internal/doctor"
	"github.com/mattjoyce/vestibule/internal/log"
	"github.com/mattjoyce/vestibule/internal/platform"
	"github.com/mattjoyce/vestibule/internal/provision"
	"github.com/mattjoyce/vestibule/internal/subscription"
	"github.com/mattjoyce/vestibule/internal/webhook"
)

const version = "0.1.0"

const defaultConfigPath = "./vestibule.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "reconcile":
		os.Exit(runReconcile(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "version":
		fmt.Printf("vestibule version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`vestibule - sandbox project provisioning for workspace join events

Usage:
  vestibule <command> [flags]

Commands:
  serve       Run the webhook service in the foreground
  reconcile   Converge the notification subscription once and exit
  doctor      Validate configuration and check platform credentials
  version     Show version information
  help        Show this help message

Flags:
  --config PATH   Path to configuration file (default ./vestibule.yaml)
`)
}

// loadConfig loads and (optionally) validates configuration for a
// subcommand.
func loadConfig(path string, validate bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

func newPlatformClient(cfg *config.Config, component string) *platform.Client {
	return platform.NewClient(platform.Config{
		APIURL:   cfg.Platform.APIURL,
		APIToken: cfg.Platform.APIToken,
	}, log.WithComponent(component))
}

func newReconciler(cfg *config.Config, client *platform.Client) *subscription.Reconciler {
	return subscription.New(client, subscription.Config{
		WorkspaceID:   cfg.Platform.WorkspaceID,
		PublicBaseURL: cfg.Webhook.PublicBaseURL,
		HookPath:      cfg.Webhook.Path,
		Secret:        cfg.Webhook.Secret,
	}, log.WithComponent("reconciler"))
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("vestibule starting", "version", version, "config", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newPlatformClient(cfg, "platform")

	// Startup reconciliation. A failure here is logged rather than
	// fatal: an already-registered subscription keeps delivering, and
	// the next restart retries.
	if _, err := newReconciler(cfg, client).Reconcile(ctx); err != nil {
		logger.Error("subscription reconciliation failed", "error", err)
	}

	provisioner := provision.New(client, log.WithComponent("provision"))
	guard := provision.NewGuard(cfg.Service.DedupeTTL)

	server := webhook.New(webhook.Config{
		Listen:      cfg.Listen,
		Path:        cfg.Webhook.Path,
		Secret:      cfg.Webhook.Secret,
		MaxBodySize: cfg.Webhook.MaxBodySize,
	}, provisioner, guard, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	logger.Info("vestibule running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("vestibule stopped")
	return 0
}

func runReconcile(args []string) int {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)

	client := newPlatformClient(cfg, "platform")
	sub, err := newReconciler(cfg, client).Reconcile(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reconcile failed: %v\n", err)
		return 1
	}
	if sub == nil {
		fmt.Println("Reconciliation skipped: no public base URL configured")
		return 0
	}
	fmt.Printf("Subscription %s active for %s\n", sub.ID, platform.EventMemberJoined)
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in JSON")
	offline := fs.Bool("offline", false, "Skip the live credential check")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	// Doctor inspects broken configs, so load without validating.
	cfg, err := loadConfig(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup("ERROR")

	var api doctor.MemberLister
	if !*offline {
		api = newPlatformClient(cfg, "doctor")
	}

	result := doctor.New(cfg, api).Validate(context.Background())

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}
