package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/quintaverde/pai/pkg/pai/assistant"
	"github.com/quintaverde/pai/pkg/pai/devices"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// newChatCmd creates the `pai chat` command for local conversations.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant from the terminal",
		Long: `Run one turn or an interactive session against the local assistant
core, without going through the HTTP server.

Examples:
  pai chat "turn on the lounge lights"
  pai chat  # interactive mode`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringP("model", "m", "", "override the configured LLM model")
	cmd.Flags().String("as", "", "person ID to act as (default: an unassigned admin)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}

	logger := buildLogger(cmd, cfg)
	assistant.ResolveAPIKey(cfg, logger)

	store, err := directory.Open(cfg.Directory, logger)
	if err != nil {
		return fmt.Errorf("opening directory: %w", err)
	}
	defer store.Close()

	llm := assistant.NewLLMClient(cfg, logger)
	executor := assistant.NewToolExecutor(devices.NewClients(cfg.Devices), store, cfg, logger)
	conv := assistant.NewConversation(llm, executor, cfg, logger)

	// The terminal operator acts as an admin unless --as names a person.
	identity := assistant.Identity{DisplayName: "Operator", Role: assistant.RoleAdmin}
	if personID, _ := cmd.Flags().GetString("as"); personID != "" {
		identity = assistant.Identity{PersonID: personID, DisplayName: personID, Role: assistant.RoleResident}
	}

	ctx := context.Background()
	var history []assistant.Turn

	turn := func(message string) error {
		// Scope and prompt are rebuilt per turn, same as the server does.
		scope, err := assistant.BuildScope(ctx, store, identity, logger)
		if err != nil {
			return err
		}
		outcome, err := conv.Converse(ctx,
			assistant.CompilePrompt(scope, cfg),
			assistant.OfferedTools(scope),
			history, message, "chat", scope)
		if err != nil {
			return err
		}
		fmt.Println(outcome.Reply)
		history = append(history,
			assistant.Turn{Role: "user", Text: message},
			assistant.Turn{Role: "assistant", Text: outcome.Reply},
		)
		return nil
	}

	if len(args) > 0 {
		return turn(args[0])
	}

	// Interactive mode.
	rl, err := readline.New(cfg.Name + "> ")
	if err != nil {
		return fmt.Errorf("starting terminal: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Chatting with %s. Type 'exit' or Ctrl+D to quit.\n", cfg.Name)
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := turn(line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
