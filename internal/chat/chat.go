// Package chat implements the interactive terminal session: a promptui input
// loop over one orchestrator, with a few inline commands.
package chat

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"

	"github.com/mymy770/Clara/internal/orchestrator"
)

// Command represents a special chat command
type Command struct {
	Name        string
	Description string
	Handler     func() string
}

// Chat is the interactive terminal interface for one session.
type Chat struct {
	commands map[string]Command
	prompt   *promptui.Prompt
	orch     *orchestrator.Orchestrator
	quit     bool
}

// NewChat creates a chat interface over the given orchestrator.
func NewChat(orch *orchestrator.Orchestrator) *Chat {
	c := &Chat{
		commands: make(map[string]Command),
		orch:     orch,
		prompt: &promptui.Prompt{
			Label:     "you",
			AllowEdit: true,
		},
	}
	c.registerCommands()
	return c
}

func (c *Chat) registerCommands() {
	c.commands["help()"] = Command{
		Name:        "help()",
		Description: "Show available commands",
		Handler: func() string {
			names := make([]string, 0, len(c.commands))
			for name := range c.commands {
				names = append(names, name)
			}
			sort.Strings(names)

			var sb strings.Builder
			sb.WriteString("Available commands:\n")
			for _, name := range names {
				sb.WriteString(fmt.Sprintf("  %s - %s\n", name, c.commands[name].Description))
			}
			return sb.String()
		},
	}

	quit := Command{
		Name:        "exit()",
		Description: "Exit the application",
		Handler: func() string {
			c.quit = true
			return "Goodbye!"
		},
	}
	c.commands["exit()"] = quit
	c.commands["quit()"] = quit

	c.commands["session()"] = Command{
		Name:        "session()",
		Description: "Show the current session id",
		Handler: func() string {
			return fmt.Sprintf("Session: %s", c.orch.SessionID())
		},
	}

	c.commands["now()"] = Command{
		Name:        "now()",
		Description: "Show current date and time",
		Handler: func() string {
			return fmt.Sprintf("Current time: %s", time.Now().Format("Monday, January 2, 2006 at 3:04:05 PM MST"))
		},
	}
}

// Run starts the input loop and blocks until exit or Ctrl+C.
func (c *Chat) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()

	fmt.Printf("Clara ready. Session %s.\n", c.orch.SessionID())
	fmt.Println("Type help() for available commands, exit() to quit.")
	fmt.Println()

	for !c.quit {
		input, err := c.prompt.Run()
		if err != nil {
			if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
				return nil
			}
			return fmt.Errorf("prompt failed: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}

		if command, exists := c.commands[trimmed]; exists {
			if out := command.Handler(); out != "" {
				fmt.Println(out)
			}
			continue
		}

		reply, _ := c.orch.HandleTurn(ctx, trimmed)
		fmt.Printf("clara: %s\n\n", reply)
	}
	return nil
}
