package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clanker/pkg/agent"
	"clanker/pkg/core"
)

// ProcessMessage runs one inbound message through the agent layer and
// returns the reply. With orchestration enabled the master may fan out to
// Worker_Clankers; otherwise a single direct call is made. Either way the
// reply inherits the channel routing of the incoming message.
func ProcessMessage(ctx context.Context, state *AppState, incoming *core.Message) (*core.Message, error) {
	if incoming.Text == "" {
		return nil, fmt.Errorf("Message text cannot be empty")
	}

	slog.Info("Processing message",
		"sender", incoming.Sender,
		"channel_type", incoming.ChannelType,
		"chars", len(incoming.Text))

	var content string
	var err error

	if state.OrchestrationEnabled() && state.Orchestrator() != nil {
		content, err = processWithOrchestration(ctx, state, incoming.Text)
	} else {
		content, err = processDirect(ctx, state.Agent(), state.FallbackAgent(), incoming.Text)
	}
	if err != nil {
		return nil, err
	}

	return core.NewMessage(incoming.ChannelType, incoming.ChannelID, "assistant", content), nil
}

// processDirect makes a single chat call, retrying once against the
// fallback agent when the primary fails.
func processDirect(ctx context.Context, primary, fallback agent.Agent, userContent string) (string, error) {
	messages := []agent.Message{
		{Role: agent.RoleUser, Content: userContent},
	}

	resp, err := primary.Chat(ctx, messages)
	if err == nil {
		slog.Debug("Agent response", "chars", len(resp.Content), "model", resp.Model)
		return resp.Content, nil
	}

	if fallback != nil {
		slog.Error("Primary agent failed, retrying with fallback", "provider", fallback.Provider(), "error", err)
		fbResp, fbErr := fallback.Chat(ctx, messages)
		if fbErr != nil {
			slog.Error("Fallback agent error", "error", fbErr)
			return "", fbErr
		}
		slog.Debug("Fallback response", "chars", len(fbResp.Content), "model", fbResp.Model)
		return fbResp.Content, nil
	}

	return "", err
}

// processWithOrchestration drives the two-phase Master/Worker protocol.
// The fallback agent is tried at most once per failing call site: once for
// the first master call, once for the synthesis call.
func processWithOrchestration(ctx context.Context, state *AppState, userContent string) (string, error) {
	orchestrator := state.Orchestrator()
	master := orchestrator.MasterAgent()
	fallback := state.FallbackAgent()

	messages := []agent.Message{
		{Role: agent.RoleSystem, Content: agent.MasterSystemPrompt},
		{Role: agent.RoleUser, Content: userContent},
	}

	resp, err := master.Chat(ctx, messages)
	if err != nil {
		slog.Error("Master_Clanker error", "error", err)
		if fallback == nil {
			return "", err
		}
		slog.Error("Retrying with fallback", "provider", fallback.Provider())
		fbResp, fbErr := fallback.Chat(ctx, messages)
		if fbErr != nil {
			slog.Error("Fallback agent error", "error", fbErr)
			return "", fbErr
		}
		return fbResp.Content, nil
	}

	masterResponse := strings.TrimSpace(resp.Content)

	tasks := agent.ParseDelegation(masterResponse)
	if tasks == nil {
		// No delegation: the master's reply is the final answer.
		return masterResponse, nil
	}

	n := len(tasks)
	if max := state.MaxWorkers(); n > max {
		n = max
	}
	if n == 0 {
		return masterResponse, nil
	}
	tasks = tasks[:n]

	if err := state.AcquireWorkers(ctx, n); err != nil {
		return "", err
	}
	results := orchestrator.Delegate(ctx, tasks)
	state.ReleaseWorkers(n)

	resultLines := make([]string, 0, len(results))
	for _, r := range results {
		resultLines = append(resultLines, fmt.Sprintf("[%s] Task: %s\nResult: %s", r.Identity, r.Task, r.Content))
	}

	messages = append(messages,
		agent.Message{Role: agent.RoleAssistant, Content: masterResponse},
		agent.Message{Role: agent.RoleUser, Content: fmt.Sprintf(
			"Worker_Clanker results:\n\n%s\n\nSynthesize these results into a coherent response for the user.",
			strings.Join(resultLines, "\n\n"))},
	)

	synthesis, err := master.Chat(ctx, messages)
	if err != nil {
		slog.Error("Master_Clanker synthesis error", "error", err)
		if fallback == nil {
			return "", err
		}
		slog.Error("Retrying synthesis with fallback", "provider", fallback.Provider())
		fbResp, fbErr := fallback.Chat(ctx, messages)
		if fbErr != nil {
			slog.Error("Fallback agent error", "error", fbErr)
			return "", fbErr
		}
		return fbResp.Content, nil
	}

	return synthesis.Content, nil
}
