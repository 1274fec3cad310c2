package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mymy770/Clara/internal/chat"
	"github.com/mymy770/Clara/internal/dispatch"
	"github.com/mymy770/Clara/internal/orchestrator"
	"github.com/mymy770/Clara/internal/tracing"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		store, fs, err := buildStores(settings)
		if err != nil {
			return err
		}
		defer store.Close()

		model, err := buildModel(settings)
		if err != nil {
			return err
		}

		sessionID := uuid.NewString()
		tracer, err := tracing.NewSessionTracer(sessionID,
			tracing.WithSessionsDir(settings.Paths.SessionLogs),
			tracing.WithDebugDir(settings.Paths.DebugLogs))
		if err != nil {
			return fmt.Errorf("create session tracer: %w", err)
		}
		defer tracer.Close()

		orch := orchestrator.New(sessionID, model, dispatch.New(store, fs), store,
			orchestrator.WithSystemPrompt(settings.SystemPrompt),
			orchestrator.WithMaxHistory(settings.MaxHistory),
			orchestrator.WithTracer(tracer))

		return chat.NewChat(orch).Run(cmd.Context())
	},
}
