package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/tryandromeda/copilot/internal/agent"
	"github.com/tryandromeda/copilot/internal/errors"
	"github.com/tryandromeda/copilot/internal/session"
	"github.com/tryandromeda/copilot/internal/tools"
	"github.com/tryandromeda/copilot/internal/workspace"
)

type chatter interface {
	Chat(ctx context.Context, message string) (agent.Reply, error)
}

type styles struct {
	title   lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	accent  lipgloss.Style
	bold    lipgloss.Style
	label   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		bold:    lipgloss.NewStyle().Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
	}
}

// runREPL performs the startup checks and runs an interactive session.
// simple mode has no workspace registry and no demo fallback.
func runREPL(c *cli.Context, deps *cliDeps, simple bool) error {
	if err := startupChecks(c, deps); err != nil {
		return err
	}

	catalog, closeJournal := buildCatalog(deps)
	defer closeJournal()

	env := &tools.Env{
		DefaultRoot: deps.cfg.DefaultWorkspaceDir,
		SessionID:   session.NewID(),
		Log:         deps.log,
	}
	var registry *workspace.Registry
	if !simple {
		registry = workspace.New(deps.cfg.WorkspacesDir, deps.log)
		env.Workspaces = registry
	}

	a := agent.New(deps.newProvider(deps.cfg.APIKey, deps.cfg.BaseURL), catalog, env, agentConfig(deps.cfg), deps.log)
	r := newREPL(c.App.Reader, c.App.Writer, a, registry, deps.interactive)
	r.simple = simple
	r.workspaceDir = env.Root()
	return r.Run(c.Context)
}

type repl struct {
	scanner      *bufio.Scanner
	out          io.Writer
	agent        chatter
	registry     *workspace.Registry
	interactive  bool
	simple       bool
	workspaceDir string
	st           styles
}

func newREPL(in io.Reader, out io.Writer, a chatter, registry *workspace.Registry, interactive bool) *repl {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &repl{
		scanner:     scanner,
		out:         out,
		agent:       a,
		registry:    registry,
		interactive: interactive,
		st:          newStyles(),
	}
}

func (r *repl) println(s string) {
	fmt.Fprintln(r.out, s)
}

func (r *repl) readLine() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.scanner.Text()), true
}

// Run reads commands until "exit" or end of input.
func (r *repl) Run(ctx context.Context) error {
	r.printBanner()

	for {
		fmt.Fprint(r.out, "You: ")
		line, ok := r.readLine()
		if !ok {
			r.println("")
			r.println(r.st.warn.Render("👋 Goodbye!"))
			return r.scanner.Err()
		}
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case lower == "exit":
			r.println(r.st.warn.Render("👋 Goodbye!"))
			return nil
		case lower == "clear":
			r.println(r.st.success.Render("🧹 Conversation history cleared! (Note: Each request is independent with the new agent)"))
		case lower == "help":
			r.printHelp()
		case !r.simple && (lower == "workspace" || strings.HasPrefix(lower, "workspace ")):
			r.handleWorkspace(strings.Fields(line)[1:])
		default:
			r.ask(ctx, line)
		}
	}
}

func (r *repl) printBanner() {
	if r.simple {
		r.println("🌌 Andromeda AI Agent started!")
		r.println("📝 I can write and execute TypeScript/JavaScript files using the Andromeda runtime")
		r.println(`💡 Type your requests below (type "exit" to quit)`)
		r.println(`🧹 Type "clear" to clear conversation history`)
		r.println(`❓ Type "help" for available commands`)
		r.println(strings.Repeat("─", 60))
		return
	}

	name := "default"
	if ws, ok := r.registry.Current(); ok {
		name = ws.Name
	}
	r.println(r.st.dim.Render(fmt.Sprintf("📂 Current workspace: %s (%s)", name, r.workspaceDir)))
	r.println(r.st.title.Render("🌌 Andromeda Copilot started!"))
	r.println(r.st.info.Render("📝 I can write and execute TypeScript/JavaScript files using the Andromeda runtime"))
	r.println(r.st.success.Render(`💡 Type your requests below (type "exit" to quit)`))
	r.println(r.st.success.Render(`🧹 Type "clear" to clear conversation history`))
	r.println(r.st.success.Render(`❓ Type "help" for available commands`))
	r.println(r.st.success.Render(`📂 Type "workspace" for workspace management`))
	r.println(r.st.dim.Render(strings.Repeat("─", 60)))
}

func (r *repl) printHelp() {
	var b strings.Builder
	b.WriteString("\n📋 Available commands:\n")
	b.WriteString("  - exit: Quit the application\n")
	b.WriteString("  - clear: Clear conversation history\n")
	b.WriteString("  - help: Show this help message\n")
	if !r.simple {
		b.WriteString("  - workspace: Manage workspaces (workspace help for details)\n")
	}
	b.WriteString("\n🌌 Andromeda Agent Capabilities:\n")
	b.WriteString("  - Write TypeScript/JavaScript files\n")
	b.WriteString("  - Execute files with Andromeda runtime\n")
	b.WriteString("  - Read and manage workspace files\n")
	b.WriteString("  - Create applications and scripts\n")
	b.WriteString("\n💡 Example requests:\n")
	b.WriteString(`  - "Create a TypeScript file that calculates fibonacci numbers"` + "\n")
	b.WriteString(`  - "Write a simple web server and execute it"` + "\n")
	b.WriteString(`  - "Show me the files in the workspace"` + "\n")
	b.WriteString(`  - "Create a calculator application"` + "\n")
	r.println(b.String())
}

// ask runs one agent turn and prints the answer and token usage.
func (r *repl) ask(ctx context.Context, message string) {
	r.println("🤔 Thinking...")

	reply, err := r.agent.Chat(ctx, message)
	if err != nil {
		if !r.simple && errors.Is(err, errors.ErrCredential) {
			demo := agent.DemoReply(agent.DemoForTerminal)
			r.println(fmt.Sprintf("\n%s %s\n\n📋 To fix this, set your OpenAI API key in the .env file.\n",
				r.st.label.Render("🌌 Andromeda Agent (Demo Mode):"), demo.Content))
			r.println(r.st.dim.Render(fmt.Sprintf("📊 Tokens: %d (prompt: %d, completion: %d) [Mock]",
				demo.Usage.TotalTokens, demo.Usage.PromptTokens, demo.Usage.CompletionTokens)))
			return
		}
		r.println(r.st.fail.Render("❌ Error:") + " " + errors.As(err).Message)
		r.println(r.st.warn.Render("Please try again or check your API key."))
		return
	}

	r.println(fmt.Sprintf("\n%s %s\n", r.st.label.Render("🌌 Andromeda Agent:"), reply.Content))
	if reply.Usage.TotalTokens > 0 {
		r.println(r.st.dim.Render(fmt.Sprintf("📊 Tokens: %d (prompt: %d, completion: %d)",
			reply.Usage.TotalTokens, reply.Usage.PromptTokens, reply.Usage.CompletionTokens)))
	}
	r.println(r.st.dim.Render(strings.Repeat("─", 50)))
}

// confirm asks a yes/no question, defaulting to no.
func (r *repl) confirm(question string) bool {
	if r.interactive {
		ok := false
		err := huh.NewConfirm().
			Title(question).
			Value(&ok).
			Affirmative("Yes").
			Negative("No").
			Run()
		return err == nil && ok
	}

	fmt.Fprint(r.out, r.st.warn.Render(question+" (y/N): "))
	answer, _ := r.readLine()
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (r *repl) handleWorkspace(args []string) {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	rest := ""
	if len(args) > 1 {
		rest = strings.Join(args[1:], " ")
	}

	switch sub {
	case "list", "ls":
		r.listWorkspaces()

	case "create", "new":
		if rest == "" {
			r.println(r.st.fail.Render("❌ Please provide a workspace name: workspace create <name>"))
			return
		}
		ws, err := r.registry.Create(rest, "", "")
		if err != nil {
			r.println(r.st.fail.Render("❌ " + errors.As(err).Message))
			return
		}
		r.println(r.st.success.Render(fmt.Sprintf("✅ Created workspace %q", ws.Name)))
		r.println(r.st.info.Render("💡 Switch to it with: workspace switch " + ws.Name))

	case "switch", "use":
		if rest == "" {
			r.println(r.st.fail.Render("❌ Please provide a workspace name: workspace switch <name>"))
			return
		}
		target, ok := r.registry.GetByName(rest)
		if !ok {
			r.println(r.st.fail.Render(fmt.Sprintf("❌ Workspace %q not found", rest)))
			return
		}
		if _, err := r.registry.SetCurrent(target.ID); err != nil {
			r.println(r.st.fail.Render("❌ " + errors.As(err).Message))
			return
		}
		r.println(r.st.success.Render(fmt.Sprintf("✅ Switched to workspace %q", target.Name)))

	case "delete", "remove":
		if rest == "" {
			r.println(r.st.fail.Render("❌ Please provide a workspace name: workspace delete <name>"))
			return
		}
		target, ok := r.registry.GetByName(rest)
		if !ok {
			r.println(r.st.fail.Render(fmt.Sprintf("❌ Workspace %q not found", rest)))
			return
		}
		if !r.confirm(fmt.Sprintf("⚠️  Are you sure you want to delete workspace %q?", rest)) {
			r.println(r.st.info.Render("Cancelled"))
			return
		}
		deleteFiles := r.confirm("Delete workspace files too?")
		if r.registry.Delete(target.ID, deleteFiles) {
			r.println(r.st.success.Render(fmt.Sprintf("✅ Deleted workspace %q", target.Name)))
		}

	case "rename":
		ref, newName := splitTarget(rest)
		if ref == "" || newName == "" {
			r.println(r.st.fail.Render("❌ Usage: workspace rename <name> <new name>"))
			return
		}
		target, ok := r.registry.Find(ref)
		if !ok {
			r.println(r.st.fail.Render(fmt.Sprintf("❌ Workspace %q not found", ref)))
			return
		}
		if _, err := r.registry.Rename(target.ID, newName); err != nil {
			r.println(r.st.fail.Render("❌ " + errors.As(err).Message))
			return
		}
		r.println(r.st.success.Render(fmt.Sprintf("✅ Renamed workspace %q to %q", target.Name, workspace.SanitizeName(newName))))

	case "describe":
		ref, description := splitTarget(rest)
		if ref == "" {
			r.println(r.st.fail.Render("❌ Usage: workspace describe <name> <description>"))
			return
		}
		target, ok := r.registry.Find(ref)
		if !ok {
			r.println(r.st.fail.Render(fmt.Sprintf("❌ Workspace %q not found", ref)))
			return
		}
		r.registry.UpdateDescription(target.ID, description)
		r.println(r.st.success.Render(fmt.Sprintf("✅ Updated description of %q", target.Name)))

	case "current", "info":
		r.showCurrent()

	default:
		r.printWorkspaceHelp()
	}
}

func (r *repl) listWorkspaces() {
	list := r.registry.List()
	if len(list) == 0 {
		r.println(r.st.warn.Render("No workspaces found. Create one with 'workspace create <name>'"))
		return
	}

	current, _ := r.registry.Current()
	r.println(r.st.info.Render("\n📂 Available Workspaces:"))
	for i, ws := range list {
		marker := ""
		if ws.ID == current.ID {
			marker = r.st.success.Render(" (current)")
		}
		r.println(fmt.Sprintf("%s %s%s", r.st.accent.Render(fmt.Sprintf("%d.", i+1)), r.st.bold.Render(ws.Name), marker))
		if ws.Description != "" {
			r.println(r.st.dim.Render("   " + ws.Description))
		}
		r.println(r.st.dim.Render("   Path: " + ws.Path))
		r.println(r.st.dim.Render("   Last accessed: " + ws.LastAccessed.Local().Format("2006-01-02")))
		r.println("")
	}
}

func (r *repl) showCurrent() {
	ws, ok := r.registry.Current()
	if !ok {
		r.println(r.st.warn.Render("No workspace selected (using default)"))
		return
	}
	r.println(r.st.info.Render("\n📂 Current Workspace:"))
	r.println(r.st.bold.Render("Name:") + " " + ws.Name)
	if ws.Description != "" {
		r.println(r.st.bold.Render("Description:") + " " + ws.Description)
	}
	r.println(r.st.bold.Render("Path:") + " " + ws.Path)
	r.println(r.st.bold.Render("Created:") + " " + ws.CreatedAt.Local().Format("2006-01-02"))
	r.println(r.st.bold.Render("Last accessed:") + " " + ws.LastAccessed.Local().Format("2006-01-02"))
	r.println("")
}

// splitTarget splits `"Demo Project" rest of line` or `demo rest of line`
// into the workspace reference and the remaining text.
func splitTarget(s string) (ref, remainder string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		if end := strings.Index(s[1:], `"`); end >= 0 {
			return s[1 : end+1], strings.TrimSpace(s[end+2:])
		}
	}
	ref, remainder, _ = strings.Cut(s, " ")
	return ref, strings.TrimSpace(remainder)
}

func (r *repl) printWorkspaceHelp() {
	r.println(r.st.info.Render("\n📂 Workspace Commands:"))
	for _, line := range [][2]string{
		{"workspace list", "List all workspaces"},
		{"workspace create <name>", "Create a new workspace"},
		{"workspace switch <name>", "Switch to a workspace"},
		{"workspace current", "Show current workspace info"},
		{"workspace rename <name> <new name>", "Rename a workspace (quote names with spaces)"},
		{"workspace describe <name> <text>", "Set a workspace description (quote names with spaces)"},
		{"workspace delete <name>", "Delete a workspace"},
		{"workspace help", "Show this help"},
	} {
		r.println(r.st.success.Render(line[0]) + " - " + line[1])
	}
	r.println("")
}
