package duet

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/llmkit/model"
)

// ModelPricing is per-token pricing for one model, in USD.
type ModelPricing struct {
	Input  float64 // USD per input token
	Output float64 // USD per output token
}

// DefaultClaudePricing prices the Claude model families (API channel).
var DefaultClaudePricing = map[model.ModelName]ModelPricing{
	model.ModelOpus:   {Input: 0.000015, Output: 0.000075},
	model.ModelSonnet: {Input: 0.000003, Output: 0.000015},
	model.ModelHaiku:  {Input: 0.0000008, Output: 0.000004},
}

// ClaudeConfig configures the Claude-backed agent.
type ClaudeConfig struct {
	Client       llm.Client                       // LLM client (default: llm.NewClaudeCLI per spawn)
	BinaryPath   string                           // Binary checked for availability (default: "claude")
	Model        model.ModelName                  // Default model (default: sonnet)
	WorkDir      string                           // Working directory for the CLI (default: ".")
	Timeout      time.Duration                    // Default per-call timeout (default: 5m)
	Pricing      map[model.ModelName]ModelPricing // Default: DefaultClaudePricing
	Subscription bool                             // Subscription channel: zero marginal cost
}

// ClaudeAgent drives Claude through flowgraph's llm.Client. It is the
// supervising agent: it drafts critical work and reviews the fast agent's
// drafts.
type ClaudeAgent struct {
	client       llm.Client // injected client, used for every session when set
	binaryPath   string
	defaultModel model.ModelName
	workDir      string
	timeout      time.Duration
	pricing      map[model.ModelName]ModelPricing
	subscription bool

	mu       sync.Mutex
	sessions map[string]claudeSession
}

type claudeSession struct {
	opts   SpawnOptions
	client llm.Client
}

// NewClaudeAgent creates the Claude-backed agent.
func NewClaudeAgent(cfg ClaudeConfig) *ClaudeAgent {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "claude"
	}
	defaultModel := cfg.Model
	if defaultModel == "" {
		defaultModel = model.ModelSonnet
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	pricing := cfg.Pricing
	if pricing == nil {
		pricing = DefaultClaudePricing
	}

	return &ClaudeAgent{
		client:       cfg.Client,
		binaryPath:   binaryPath,
		defaultModel: defaultModel,
		workDir:      workDir,
		timeout:      timeout,
		pricing:      pricing,
		subscription: cfg.Subscription,
		sessions:     make(map[string]claudeSession),
	}
}

// Spawn implements Agent. The Claude CLI is stateless per call, so spawning
// only verifies availability and pins the session's model and system prompt.
func (a *ClaudeAgent) Spawn(ctx context.Context, sessionID string, opts SpawnOptions) error {
	if !a.IsAvailable() {
		return fmt.Errorf("claude: %w", ErrAgentUnavailable)
	}

	if opts.Model == "" {
		opts.Model = a.defaultModel
	}
	if opts.WorkDir == "" {
		opts.WorkDir = a.workDir
	}

	client := a.client
	if client == nil {
		client = llm.NewClaudeCLI(
			llm.WithModel(string(opts.Model)),
			llm.WithWorkdir(opts.WorkDir),
			llm.WithDangerouslySkipPermissions(), // Non-interactive mode for automation
		)
	}

	a.mu.Lock()
	a.sessions[sessionID] = claudeSession{opts: opts, client: client}
	a.mu.Unlock()

	return nil
}

// SendAndWait implements Agent.
func (a *ClaudeAgent) SendAndWait(ctx context.Context, sessionID, message string, opts SendOptions) (*Response, error) {
	a.mu.Lock()
	sess, ok := a.sessions[sessionID]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("claude session %s: %w", sessionID, ErrSessionNotFound)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = a.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := sess.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: sess.opts.SystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: message}},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", ErrAgentTimeout, timeout)
		}
		return nil, &AgentError{Adapter: AdapterClaude, Op: "send", Err: err}
	}

	return &Response{
		Text: result.Content,
		Usage: Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}, nil
}

// EstimateCost implements Agent. Pricing follows the given model, falling
// back to the agent's default model when the model is unknown; on the
// subscription channel marginal cost is zero.
func (a *ClaudeAgent) EstimateCost(mdl model.ModelName, inputTokens, outputTokens int) float64 {
	if a.subscription {
		return 0
	}
	p, ok := a.pricing[mdl]
	if !ok {
		p = a.pricing[a.defaultModel]
	}
	return float64(inputTokens)*p.Input + float64(outputTokens)*p.Output
}

// IsAvailable implements Agent. An injected client counts as available.
func (a *ClaudeAgent) IsAvailable() bool {
	if a.client != nil {
		return true
	}
	_, err := exec.LookPath(a.binaryPath)
	return err == nil
}
