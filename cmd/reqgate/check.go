package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/reqgate/internal/guardrail"
	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/settings"
	"github.com/metalagman/reqgate/internal/workflow"
)

func checkCmd() *cobra.Command {
	var (
		file       string
		source     string
		projectKey string
		priority   string
		ticketType string
		mode       string

		noGuardrail   bool
		noStructuring bool
		noFallback    bool
		maxRetries    int
	)
	cmd := &cobra.Command{
		Use:   "check [text]",
		Short: "Run one requirement through the quality gate",
		Long: "Runs a raw requirement text through the full pipeline and prints the " +
			"terminal state as JSON. Text is taken from the argument, --file, or stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawText, err := readInput(args, file)
			if err != nil {
				return err
			}

			packet, err := requirement.NewPacket(
				rawText,
				requirement.SourceType(source),
				projectKey,
				requirement.Priority(priority),
				requirement.TicketType(ticketType),
				nil,
			)
			if err != nil {
				return err
			}

			s, err := settings.Get()
			if err != nil {
				return err
			}

			cfg := workflow.DefaultConfig()
			cfg.EnableGuardrail = !noGuardrail
			cfg.EnableStructuring = !noStructuring
			cfg.EnableFallback = !noFallback
			if cmd.Flags().Changed("max-retries") {
				cfg.MaxRetries = maxRetries
			}
			if mode != "" {
				cfg.GuardrailMode = guardrailMode(mode)
			}
			cfg.LLMTimeout = s.LLMTimeout

			ctx := cmd.Context()
			wf, err := buildWorkflow(ctx, s, cfg)
			if err != nil {
				return err
			}

			started := time.Now()
			state, err := wf.Run(ctx, packet)
			if err != nil {
				var rejection *workflow.RejectionError
				if errors.As(err, &rejection) {
					log.Warn().
						Str("reason", string(rejection.Reason)).
						Msg("input rejected before scoring")
					printJSON(map[string]any{
						"decision": "REJECT",
						"reason":   string(rejection.Reason),
						"details":  rejection.Details,
					})
					return nil
				}
				return err
			}

			decision := "REJECT"
			if state.GateDecision != nil && *state.GateDecision {
				decision = "PASS"
			}
			log.Info().
				Str("decision", decision).
				Float64("seconds", time.Since(started).Seconds()).
				Msg("check complete")
			printJSON(map[string]any{
				"decision": decision,
				"state":    state,
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read requirement text from file ('-' for stdin)")
	cmd.Flags().StringVar(&source, "source", string(requirement.SourceJiraTicket), "source type (Jira_Ticket, PRD_Doc, Meeting_Transcript)")
	cmd.Flags().StringVar(&projectKey, "project-key", "PROJ", "project key (2-5 uppercase letters)")
	cmd.Flags().StringVar(&priority, "priority", string(requirement.PriorityP1), "priority (P0, P1, P2)")
	cmd.Flags().StringVar(&ticketType, "ticket-type", string(requirement.TicketFeature), "ticket type (Feature, Bug)")
	cmd.Flags().StringVar(&mode, "guardrail-mode", "", "guardrail mode (strict, lenient)")
	cmd.Flags().BoolVar(&noGuardrail, "no-guardrail", false, "skip the input guardrail stage")
	cmd.Flags().BoolVar(&noStructuring, "no-structuring", false, "skip structuring and score raw text")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "disable degraded-mode fallback")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "retries per model for LLM calls")
	return cmd
}

func readInput(args []string, file string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("provide requirement text as an argument or via --file")
	}
}

func guardrailMode(mode string) guardrail.Mode {
	if strings.EqualFold(mode, "strict") {
		return guardrail.ModeStrict
	}
	return guardrail.ModeLenient
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
