package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/parleyhq/parley/internal/presentation/tui"
	"github.com/parleyhq/parley/pkg/domain"
)

// RunSession drives an interactive session: each prompt is one turn, the
// operator plays the external decision-maker by typing trigger names, and
// forced decisions execute automatically.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.NoBanner {
		tui.PrintBanner()
	}

	orch, err := buildOrchestrator(opts, logger)
	if err != nil {
		return fmt.Errorf("error initializing orchestrator: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snap, err := orch.StartSession(ctx, opts.SessionID)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}
	sessionID := snap.SessionID

	render := tui.NewRenderer()
	reader := bufio.NewReader(os.Stdin)
	turn := snap.Turn
	lastMessage := ""

	fmt.Printf("Session %s (stage %s, state %s, turn %d)\n", sessionID, snap.Stage, snap.State, turn)
	fmt.Println("Type a trigger name to request it, 'context' to inspect, 'say <msg>' to set the user message, or 'quit' to leave.")

	for {
		if ctx.Err() != nil {
			fmt.Println("\nInterrupted.")
			return nil
		}

		sc, err := orch.Context(ctx, sessionID, turn, lastMessage)
		if err != nil {
			return fmt.Errorf("failed to build context: %w", err)
		}

		printPosition(render, sc)

		fmt.Print("> ")
		text, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nBye!")
			return nil
		}
		input := strings.TrimSpace(text)

		switch {
		case input == "exit" || input == "quit":
			fmt.Println("Bye!")
			return nil
		case input == "context":
			data, _ := json.MarshalIndent(sc, "", "  ")
			fmt.Println(string(data))
			continue
		case strings.HasPrefix(input, "say "):
			lastMessage = strings.TrimPrefix(input, "say ")
			continue
		}

		turn++
		result, err := orch.Advance(ctx, sessionID, turn, input, "operator request", lastMessage)
		if err != nil {
			return fmt.Errorf("advance failed: %w", err)
		}
		printResult(result.Executed, result.Forced, result.Trigger, result.RuleName, result.Reason, result.BlockReason)
		lastMessage = ""
	}
}

func printPosition(render func(string) (string, error), sc domain.StateContext) {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s / %s (turn %d)\n\n", sc.CurrentStage, sc.CurrentState, sc.TurnCounter)

	if sc.ForcedTransition != "" {
		fmt.Fprintf(&b, "Progression suggests moving to **%s**.\n\n", sc.ForcedTransition)
	}

	if len(sc.AvailableTransitions) > 0 {
		b.WriteString("**Available:**\n\n")
		for _, t := range sc.AvailableTransitions {
			fmt.Fprintf(&b, "- `%s` → %s", t.Trigger, t.Dest)
			if t.Description != "" {
				fmt.Fprintf(&b, " (%s)", t.Description)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No transitions available this turn.\n")
	}

	if len(sc.BlockedTransitions) > 0 {
		b.WriteString("\n**Blocked:**\n\n")
		for _, t := range sc.BlockedTransitions {
			fmt.Fprintf(&b, "- `%s`: %s\n", t.Trigger, t.BlockReason)
		}
	}

	out, err := render(b.String())
	if err != nil {
		fmt.Println(b.String())
		return
	}
	fmt.Print(out)
}

func printResult(executed, forced bool, trigger, ruleName, reason, blockReason string) {
	switch {
	case executed && forced:
		fmt.Printf("Forced by %s: %s (%s)\n", ruleName, trigger, reason)
	case executed:
		fmt.Printf("Executed: %s\n", trigger)
	case blockReason != "":
		fmt.Printf("Rejected: %s\n", blockReason)
	default:
		fmt.Printf("No transition: %s\n", reason)
	}
}
