// ABOUTME: Entry point for the dealpulse MCP server and CLI
// ABOUTME: Loads config, opens the configured store and routes to MCP or CLI commands
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/dealpulse/charm"
	"github.com/harperreed/dealpulse/cli"
	"github.com/harperreed/dealpulse/config"
	"github.com/harperreed/dealpulse/db"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/tui"
	"github.com/harperreed/dealpulse/web"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/dealpulse/dealpulse.db)")
	backend := flag.String("backend", "", "Storage backend: sqlite or charm")
	agentID := flag.String("agent", "", "Act as this agent ID (default: system, sees every deal)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("dealpulse version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *agentID != "" {
		cfg.AgentID = *agentID
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := config.NewLogger(cfg.LogLevel)

	command := args[0]
	commandArgs := args[1:]

	if command == "config" {
		if err := configCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	agentUUID, _ := cfg.Agent()
	agent := models.AgentContext{AgentID: agentUUID}

	store, charmClient, closeStore, err := openStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Backend, err)
	}
	defer closeStore()

	opts := []engine.SchedulerOption{engine.WithConcurrency(cfg.SchedulerConcurrency)}
	if cfg.SchedulerRate > 0 {
		opts = append(opts, engine.WithRateLimit(cfg.SchedulerRate))
	}
	service := engine.NewService(store, logger, opts...)
	env := cli.Env{Service: service, Agent: agent, Out: os.Stdout}

	switch command {
	case "mcp":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := cli.MCPCommand(ctx, service, agent, version, logger); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	case "deal":
		runSubcommand("deal", env, commandArgs, map[string]func(cli.Env, []string) error{
			"create":  cli.DealCreateCommand,
			"list":    cli.DealListCommand,
			"show":    cli.DealShowCommand,
			"stage":   cli.DealStageCommand,
			"status":  cli.DealStatusCommand,
			"event":   cli.DealEventCommand,
			"session": cli.DealSessionCommand,
			"undo":    cli.DealUndoCommand,
		})

	case "task":
		runSubcommand("task", env, commandArgs, map[string]func(cli.Env, []string) error{
			"list":   cli.TaskListCommand,
			"add":    cli.TaskAddCommand,
			"status": cli.TaskStatusCommand,
		})

	case "followups":
		runSubcommand("followups", env, commandArgs, map[string]func(cli.Env, []string) error{
			"schedule": cli.FollowupScheduleCommand,
			"preview":  cli.FollowupPreviewCommand,
		})

	case "web":
		fs := flag.NewFlagSet("web", flag.ExitOnError)
		port := fs.Int("port", 8080, "Port to listen on")
		_ = fs.Parse(commandArgs)

		server, err := web.NewServer(service, agent, logger)
		if err != nil {
			log.Fatalf("Failed to create web server: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := server.Start(ctx, *port); err != nil {
			log.Fatalf("Web server failed: %v", err)
		}

	case "tui":
		if err := tui.Run(service, agent); err != nil {
			log.Fatalf("TUI failed: %v", err)
		}

	case "viz":
		runSubcommand("viz", env, commandArgs, map[string]func(cli.Env, []string) error{
			"dashboard": cli.VizDashboardCommand,
			"graph":     cli.VizGraphCommand,
		})

	case "sync":
		if charmClient == nil {
			log.Fatalf("sync requires the charm backend (--backend charm)")
		}
		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand")
			printUsage()
			os.Exit(1)
		}
		syncArgs := commandArgs[1:]
		switch commandArgs[0] {
		case "status":
			err = charm.SyncStatusCommand(os.Stdout, charmClient, syncArgs)
		case "now":
			err = charm.SyncNowCommand(os.Stdout, charmClient, syncArgs)
		case "auto":
			err = charm.SetAutoSyncCommand(os.Stdout, charmClient, syncArgs)
		default:
			fmt.Printf("Unknown sync command: %s\n\n", commandArgs[0])
			printUsage()
			os.Exit(1)
		}
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// openStore opens the configured backend. The charm client is nil for sqlite.
func openStore(cfg *config.Config, logger *slog.Logger) (engine.Store, *charm.Client, func(), error) {
	switch cfg.Backend {
	case config.BackendCharm:
		client, err := charm.NewClient(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Debug("using charm store", slog.String("host", client.Host()))
		return charm.NewStore(client), client, func() {}, nil

	default:
		database, err := db.OpenDatabase(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Debug("using sqlite store", slog.String("path", cfg.DBPath))
		return db.NewStore(database), nil, func() { _ = database.Close() }, nil
	}
}

func runSubcommand(group string, env cli.Env, args []string, commands map[string]func(cli.Env, []string) error) {
	if len(args) == 0 {
		fmt.Printf("Error: %s requires a subcommand\n\n", group)
		printUsage()
		os.Exit(1)
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Printf("Unknown %s command: %s\n\n", group, args[0])
		printUsage()
		os.Exit(1)
	}
	if err := run(env, args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func configCommand(cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] == "show" {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s\n", cfg.Path(), data)
		return nil
	}
	if args[0] == "save" {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Config saved to %s\n", cfg.Path())
		return nil
	}
	return fmt.Errorf("unknown config command: %s", args[0])
}

func printUsage() {
	fmt.Printf(`dealpulse v%s - deal lifecycle and engagement automation

USAGE:
  dealpulse [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/dealpulse/dealpulse.db)
  --backend <name>       Storage backend: sqlite (default) or charm
  --agent <id>           Act as this agent (default: system context)
  --log-level <level>    debug, info, warn or error

COMMANDS:
  mcp                    Start the MCP server on stdio
  deal                   Deal commands
  task                   Task commands
  followups              Follow-up scheduler
  tui                    Interactive deal board
  web                    Read-only web dashboard (--port, default 8080)
  viz                    Pipeline dashboard and graph
  sync                   Charm sync commands (charm backend only)
  config                 Show or save the effective config

DEAL COMMANDS:
  dealpulse deal create       Open a deal for a shared link
    --link-name <name>          Collection name (deal title)
    --link-id <id>              Shared link ID
    --owner <id>                Owning agent (defaults to --agent)
    --price <amount>            Property price (repeatable)
    --tag <tag>                 Collection tag (repeatable)
    --client-name/--client-email/--client-phone

  dealpulse deal list         List deals
    --stage <stage>             Filter by stage
    --status <status>           Filter by status
    --limit <n>                 Max results (default: 50)

  dealpulse deal show <id>                 Show a deal with its tasks
  dealpulse deal stage <id> <stage>        Move a deal forward
  dealpulse deal status <id> <status>      Change a deal's status
  dealpulse deal event [flags] <id>        Record an engagement event
    --action <action>           view, like, share, link_accessed, ...
    --at <rfc3339>              Event time (default: now)
    --meta key=value            Metadata (repeatable)
  dealpulse deal session --seconds <n> <id>  Record a browsing session
  dealpulse deal undo <id> <activity-id>   Remove an activity and re-score
    Note: flags must come before the IDs

TASK COMMANDS:
  dealpulse task list         List tasks by due date
    --deal <id>                 Filter by deal
    --status <status>           Filter by status
    --open                      Only pending and in-progress tasks
  dealpulse task add [flags] <deal-id>     Add a manual task
    --title <title>             Task title (required)
    --priority <p>              low, medium, high, urgent
    --due-in <duration>         e.g. 24h
  dealpulse task status <id> <status>      Move a task through its workflow

FOLLOW-UP COMMANDS:
  dealpulse followups schedule  Create follow-up tasks for quiet deals
  dealpulse followups preview   Show what the next run would do

VIZ COMMANDS:
  dealpulse viz dashboard     Pipeline overview in the terminal
  dealpulse viz graph         Pipeline graph as DOT
    --output <file>             Output file (default: stdout)

SYNC COMMANDS:
  dealpulse sync status       Show sync status
  dealpulse sync now          Sync with the charm server
  dealpulse sync auto --enable|--disable  Toggle auto-sync

EXAMPLES:
  # Start the MCP server
  dealpulse mcp

  # Open a deal and feed it a click
  dealpulse deal create --link-name "Lakeside lofts" --price 500000 --client-name Avery
  dealpulse deal event --action link_accessed <deal-id>

  # Run follow-ups for one agent
  dealpulse --agent <agent-id> followups schedule

`, version)
}
