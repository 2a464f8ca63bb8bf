package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clanker/pkg/config"
)

// delegatePrefix marks a master reply that requests worker fan-out.
const delegatePrefix = "[DELEGATE]"

// MasterSystemPrompt instructs the master agent on the delegation protocol.
const MasterSystemPrompt = `You are Master_Clanker, an orchestration agent that coordinates Worker_Clankers for complex tasks.

When you need to delegate to workers, your response MUST start with [DELEGATE] followed by a JSON array of worker assignments. Each assignment has "identity" (e.g. "Research Assistant", "Code Reviewer") and "task" (the specific subtask). Example:

[DELEGATE][{"identity":"Research Assistant","task":"Find recent studies on topic X"},{"identity":"Summarizer","task":"Synthesize the findings"}]

You may spawn up to 5 workers. Each worker gets a distinct identity and a specific task.

If you can answer the user's question directly without delegation, respond normally. Do NOT use [DELEGATE] for simple queries.`

// WorkerTask is one delegated assignment parsed from the master's directive.
type WorkerTask struct {
	Identity string `json:"identity"`
	Task     string `json:"task"`
}

// WorkerResult is the outcome of one worker run. Failures are carried
// inline in Content so synthesis always sees every spawned worker.
type WorkerResult struct {
	Identity string `json:"identity"`
	Task     string `json:"task"`
	Content  string `json:"content"`
}

// Master wraps the primary agent and spawns Worker_Clankers on Groq when
// the master's reply carries a delegation directive.
type Master struct {
	masterAgent Agent
	workerCfg   config.WorkerConfig
	maxWorkers  int
}

// NewMaster creates the orchestrator around an already-built master agent.
func NewMaster(masterAgent Agent, workerCfg config.WorkerConfig, maxWorkers int) *Master {
	return &Master{
		masterAgent: masterAgent,
		workerCfg:   workerCfg,
		maxWorkers:  maxWorkers,
	}
}

// MasterAgent exposes the wrapped agent for direct chat rounds.
func (m *Master) MasterAgent() Agent {
	return m.masterAgent
}

// MaxWorkers returns the fan-out cap.
func (m *Master) MaxWorkers() int {
	return m.maxWorkers
}

// Delegate runs the given tasks on fresh Groq workers, at most maxWorkers
// of them, all in parallel. One worker failing never cancels its peers;
// the failure is recorded inline in its result instead.
func (m *Master) Delegate(ctx context.Context, tasks []WorkerTask) []WorkerResult {
	if len(tasks) > m.maxWorkers {
		tasks = tasks[:m.maxWorkers]
	}

	results := make([]WorkerResult, len(tasks))
	var wg sync.WaitGroup

	for i, wt := range tasks {
		wg.Add(1)
		go func(idx int, wt WorkerTask) {
			defer wg.Done()
			results[idx] = m.runWorker(ctx, wt)
		}(i, wt)
	}

	wg.Wait()
	return results
}

func (m *Master) runWorker(ctx context.Context, wt WorkerTask) WorkerResult {
	if m.workerCfg.APIKey == "" {
		slog.Warn("Worker_Clanker skipped: Groq API key not set", "identity", wt.Identity)
		return WorkerResult{
			Identity: wt.Identity,
			Task:     wt.Task,
			Content:  fmt.Sprintf("[Error: Groq API key not configured for worker %s]", wt.Identity),
		}
	}

	worker := New(config.AgentConfig{
		Provider:  "groq",
		Model:     m.workerCfg.Model,
		APIKey:    m.workerCfg.APIKey,
		MaxTokens: m.workerCfg.MaxTokens,
	})

	systemPrompt := fmt.Sprintf("You are Worker_Clanker. Your identity: %s. Execute this task: %s", wt.Identity, wt.Task)
	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: wt.Task},
	}

	slog.Debug("Spawning Worker_Clanker", "identity", wt.Identity, "task_len", len(wt.Task))

	resp, err := worker.Chat(ctx, messages)
	if err != nil {
		slog.Error("Worker_Clanker failed", "identity", wt.Identity, "error", err)
		return WorkerResult{
			Identity: wt.Identity,
			Task:     wt.Task,
			Content:  fmt.Sprintf("[Worker error: %s]", err),
		}
	}

	return WorkerResult{
		Identity: wt.Identity,
		Task:     wt.Task,
		Content:  resp.Content,
	}
}

// ParseDelegation extracts worker tasks from a master reply. It returns nil
// whenever the reply is not a well-formed directive: missing prefix, no JSON
// array, undecodable array, or an empty task list. Text trailing the array
// is ignored. The function never panics, whatever the input.
func ParseDelegation(response string) []WorkerTask {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, delegatePrefix) {
		return nil
	}

	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, delegatePrefix))
	if rest == "" {
		return nil
	}

	arr, ok := extractJSONArray(rest)
	if !ok {
		return nil
	}

	var tasks []WorkerTask
	if err := json.Unmarshal([]byte(arr), &tasks); err != nil {
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}
	return tasks
}

// extractJSONArray scans for the first complete top-level JSON array,
// tracking string state so brackets inside quotes don't count. Both double
// and single quotes are honored because LLM output is not always strict JSON.
func extractJSONArray(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return "", false
	}

	depth := 0
	inString := false
	escape := false
	var quote rune

	for i, c := range s {
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
