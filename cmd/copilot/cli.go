package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tryandromeda/copilot/internal/agent"
	"github.com/tryandromeda/copilot/internal/config"
	"github.com/tryandromeda/copilot/internal/db"
	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/mcp"
	"github.com/tryandromeda/copilot/internal/session"
	"github.com/tryandromeda/copilot/internal/tools"
	"github.com/tryandromeda/copilot/internal/web"
	"github.com/tryandromeda/copilot/internal/workspace"
)

const runtimeInstallHint = "cargo install --git https://github.com/tryandromeda/andromeda"

// newCLIApp creates the CLI application with all commands.
// Running without a command starts the chat REPL.
func newCLIApp(deps *cliDeps) *cli.App {
	app := &cli.App{
		Name:    "copilot",
		Usage:   "Andromeda Copilot: an AI assistant that writes and runs code in your workspaces",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-key", Usage: "OpenAI API key (overrides OPENAI_API_KEY)"},
			&cli.StringFlag{Name: "model", Usage: "Chat model"},
			&cli.Float64Flag{Name: "temperature", Usage: "Sampling temperature"},
			&cli.IntFlag{Name: "max-tokens", Usage: "Completion token cap per provider round"},
			&cli.StringFlag{Name: "workspace", Usage: "Directory used when no workspace is selected"},
			&cli.BoolFlag{Name: "skip-runtime-check", Usage: "Start without verifying the code runtime is installed"},
		},
		Before: func(c *cli.Context) error {
			if err := loadDeps(deps); err != nil {
				return err
			}
			applyFlags(c, deps.cfg)
			return nil
		},
		Action: func(c *cli.Context) error {
			return runREPL(c, deps, false)
		},
		Commands: []*cli.Command{
			chatCmd(deps),
			simpleCmd(deps),
			serveCmd(deps),
			mcpCmd(deps),
			workspaceCmd(deps),
			journalCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// applyFlags overlays global flags onto the loaded config.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if v := c.String("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v := c.String("model"); v != "" {
		cfg.Model = v
	}
	if c.IsSet("temperature") {
		t := float32(c.Float64("temperature"))
		cfg.Temperature = &t
	}
	if v := c.Int("max-tokens"); v > 0 {
		cfg.MaxTokens = v
	}
	if v := c.String("workspace"); v != "" {
		cfg.DefaultWorkspaceDir = v
	}
}

// chatCmd creates the chat command.
func chatCmd(deps *cliDeps) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat with workspace management (default)",
		Action: func(c *cli.Context) error {
			return runREPL(c, deps, false)
		},
	}
}

// simpleCmd creates the simple command.
func simpleCmd(deps *cliDeps) *cli.Command {
	return &cli.Command{
		Name:  "simple",
		Usage: "Minimal chat in the default workspace directory",
		Action: func(c *cli.Context) error {
			return runREPL(c, deps, true)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(deps *cliDeps) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Run the HTTP API and web client",
		ArgsUsage: "[port]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Interface to listen on"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			cfg := deps.cfg
			if v := c.String("bind"); v != "" {
				cfg.Bind = v
			}
			if v := c.Int("port"); v > 0 {
				cfg.Port = v
			}
			if c.NArg() > 0 {
				port, err := strconv.Atoi(c.Args().First())
				if err != nil || port <= 0 {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %q", c.Args().First())))
				}
				cfg.Port = port
			}

			if err := startupChecks(c, deps); err != nil {
				return err
			}

			catalog, closeJournal := buildCatalog(deps)
			defer closeJournal()

			registry := workspace.New(cfg.WorkspacesDir, deps.log)
			sessions := session.NewStore(func(sessionID, apiKey string) *agent.Agent {
				if apiKey == "" {
					apiKey = cfg.APIKey
				}
				env := &tools.Env{
					Workspaces:  registry,
					DefaultRoot: cfg.DefaultWorkspaceDir,
					SessionID:   sessionID,
					Log:         deps.log,
				}
				return agent.New(deps.newProvider(apiKey, cfg.BaseURL), catalog, env, agentConfig(cfg), deps.log)
			}, deps.log)

			srv, err := web.NewServer(registry, sessions, deps.log, web.Options{
				Bind:    cfg.Bind,
				Port:    cfg.Port,
				WebRoot: cfg.WebRoot,
			})
			if err != nil {
				return outputError(err)
			}

			st := newStyles()
			fmt.Fprintln(c.App.Writer, st.title.Render(fmt.Sprintf("🌐 Andromeda API Server starting on port %d", cfg.Port)))
			fmt.Fprintln(c.App.Writer, st.info.Render(fmt.Sprintf("🌍 Web interface: http://localhost:%d", cfg.Port)))
			return web.Run(srv, deps.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(deps *cliDeps) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the tool catalog over MCP (stdio)",
		Action: func(c *cli.Context) error {
			catalog, closeJournal := buildCatalog(deps)
			defer closeJournal()

			registry := workspace.New(deps.cfg.WorkspacesDir, deps.log)
			env := &tools.Env{
				Workspaces:  registry,
				DefaultRoot: deps.cfg.DefaultWorkspaceDir,
				SessionID:   "mcp-" + session.NewID(),
				Log:         deps.log,
			}
			return mcp.Run(catalog, env, registry, Version)
		},
	}
}

// workspaceCmd creates the workspace command and its subcommands.
func workspaceCmd(deps *cliDeps) *cli.Command {
	registry := func() *workspace.Registry {
		return workspace.New(deps.cfg.WorkspacesDir, deps.log)
	}
	find := func(r *workspace.Registry, c *cli.Context) (workspace.Workspace, error) {
		if c.NArg() == 0 {
			return workspace.Workspace{}, errors.NewInvalidRequest("workspace id or name is required")
		}
		ref := c.Args().First()
		ws, ok := r.Find(ref)
		if !ok {
			return workspace.Workspace{}, errors.NewNotFound(ref)
		}
		return ws, nil
	}

	return &cli.Command{
		Name:    "workspace",
		Aliases: []string{"ws"},
		Usage:   "Manage workspaces",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List workspaces, most recently used first",
				Action: func(c *cli.Context) error {
					return outputJSON(c.App.Writer, registry().List())
				},
			},
			{
				Name:      "create",
				Aliases:   []string{"new"},
				Usage:     "Create a workspace",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Workspace description"},
					&cli.StringFlag{Name: "path", Usage: "Use this directory instead of <workspaces_dir>/<slug>"},
					&cli.BoolFlag{Name: "switch", Aliases: []string{"s"}, Usage: "Make the new workspace current"},
				},
				Action: func(c *cli.Context) error {
					name := strings.Join(c.Args().Slice(), " ")
					if strings.TrimSpace(name) == "" {
						return outputError(errors.NewInvalidRequest("workspace name is required"))
					}
					r := registry()
					ws, err := r.Create(name, c.String("description"), c.String("path"))
					if err != nil {
						return outputError(err)
					}
					if c.Bool("switch") {
						if ws, err = r.SetCurrent(ws.ID); err != nil {
							return outputError(err)
						}
					}
					return outputJSON(c.App.Writer, ws)
				},
			},
			{
				Name:      "switch",
				Aliases:   []string{"use"},
				Usage:     "Make a workspace current",
				ArgsUsage: "<id|name>",
				Action: func(c *cli.Context) error {
					r := registry()
					target, err := find(r, c)
					if err != nil {
						return outputError(err)
					}
					ws, err := r.SetCurrent(target.ID)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, ws)
				},
			},
			{
				Name:      "delete",
				Aliases:   []string{"remove", "rm"},
				Usage:     "Remove a workspace from the registry",
				ArgsUsage: "<id|name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "files", Usage: "Also delete the workspace directory"},
				},
				Action: func(c *cli.Context) error {
					r := registry()
					target, err := find(r, c)
					if err != nil {
						return outputError(err)
					}
					if !r.Delete(target.ID, c.Bool("files")) {
						return outputError(errors.NewNotFound(target.ID))
					}
					return outputJSON(c.App.Writer, map[string]any{"success": true, "id": target.ID})
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a workspace (its directory is unchanged)",
				ArgsUsage: "<id|name> <new name>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("usage: workspace rename <id|name> <new name>"))
					}
					r := registry()
					target, err := find(r, c)
					if err != nil {
						return outputError(err)
					}
					if _, err := r.Rename(target.ID, strings.Join(c.Args().Tail(), " ")); err != nil {
						return outputError(err)
					}
					ws, _ := r.Get(target.ID)
					return outputJSON(c.App.Writer, ws)
				},
			},
			{
				Name:      "describe",
				Usage:     "Set a workspace description",
				ArgsUsage: "<id|name> <description>",
				Action: func(c *cli.Context) error {
					r := registry()
					target, err := find(r, c)
					if err != nil {
						return outputError(err)
					}
					r.UpdateDescription(target.ID, strings.Join(c.Args().Tail(), " "))
					ws, _ := r.Get(target.ID)
					return outputJSON(c.App.Writer, ws)
				},
			},
			{
				Name:    "current",
				Aliases: []string{"info"},
				Usage:   "Show the current workspace (null when none)",
				Action: func(c *cli.Context) error {
					ws, ok := registry().Current()
					if !ok {
						return outputJSON(c.App.Writer, nil)
					}
					return outputJSON(c.App.Writer, ws)
				},
			},
			{
				Name:  "stats",
				Usage: "Show registry statistics",
				Action: func(c *cli.Context) error {
					return outputJSON(c.App.Writer, registry().Stats())
				},
			},
		},
	}
}

// journalCmd creates the journal command.
func journalCmd(deps *cliDeps) *cli.Command {
	return &cli.Command{
		Name:  "journal",
		Usage: "Show recent tool runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Only runs from this session"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: db.DefaultListLimit, Usage: "Maximum runs to return"},
		},
		Action: func(c *cli.Context) error {
			database, err := db.Init(deps.stateDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer database.Close()

			runs, err := db.ListToolRuns(c.Context, database, c.String("session"), c.Int("limit"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, runs)
		},
	}
}

// startupChecks refuses to start a chat front-end without a credential or runtime.
func startupChecks(c *cli.Context, deps *cliDeps) error {
	st := newStyles()
	if deps.cfg.APIKey == "" {
		fmt.Fprintln(c.App.ErrWriter, st.warn.Render("Please set your OpenAI API key:"))
		fmt.Fprintln(c.App.ErrWriter, st.accent.Render("export "+config.EnvAPIKey+"=your_api_key_here"))
		return cli.Exit(config.EnvAPIKey+" environment variable is required", 1)
	}

	if c.Bool("skip-runtime-check") {
		return nil
	}
	version, err := tools.CheckRuntime(c.Context, deps.log, deps.cfg.RuntimeCommand)
	if err != nil {
		fmt.Fprintln(c.App.ErrWriter, st.warn.Render("Please install Andromeda runtime:"))
		fmt.Fprintln(c.App.ErrWriter, st.accent.Render(runtimeInstallHint))
		return outputError(err)
	}
	deps.log.Debug().Str("runtime", deps.cfg.RuntimeCommand).Str("version", version).Msg("runtime available")
	return nil
}

// buildCatalog creates the tool catalog, journaling runs to SQLite unless disabled.
// The returned func closes the journal database.
func buildCatalog(deps *cliDeps) (*tools.Catalog, func()) {
	cfg := deps.cfg
	if unknown := tools.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		deps.log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}

	opts := tools.Options{
		RuntimeCommand:   cfg.RuntimeCommand,
		TypeCheckCommand: cfg.TypeCheckCommand,
		Disabled:         cfg.DisabledTools,
	}

	var database *sql.DB
	if !cfg.JournalDisabled && deps.stateDir != "" {
		var err error
		database, err = db.Init(deps.stateDir)
		if err != nil {
			deps.log.Warn().Err(err).Msg("tool-run journal unavailable")
		} else {
			opts.Recorder = db.NewJournal(database, deps.log)
		}
	}

	return tools.NewCatalog(opts), func() {
		if database != nil {
			database.Close()
		}
	}
}

func agentConfig(cfg *config.Config) agent.Config {
	ac := agent.Config{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		MaxSteps:  cfg.MaxSteps,
	}
	if cfg.Temperature != nil {
		ac.Temperature = *cfg.Temperature
	}
	return ac
}

// Helper functions

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	cErr := errors.As(err)
	if cErr.Code == errors.ErrInternal {
		return cli.Exit(cErr.Message, 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
}
