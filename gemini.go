package duet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/llmkit/model"
)

// DefaultGeminiPricing prices the Gemini model variants (API channel).
var DefaultGeminiPricing = map[model.ModelName]ModelPricing{
	ModelGeminiFlash: {Input: 0.0000003, Output: 0.0000025},
	ModelGeminiPro:   {Input: 0.00000125, Output: 0.00001},
}

// GeminiConfig configures the Gemini CLI wrapper.
type GeminiConfig struct {
	BinaryPath string                           // Path to gemini binary (default: "gemini")
	Model      model.ModelName                  // Default model (default: ModelGeminiFlash)
	WorkDir    string                           // Working directory for the CLI
	Timeout    time.Duration                    // Default per-call timeout (default: 5m)
	Pricing    map[model.ModelName]ModelPricing // Default: DefaultGeminiPricing
}

// GeminiCLI wraps the gemini CLI binary. It is the fast-reading agent,
// routed the bulk of read/summarize work and reviewed drafting.
type GeminiCLI struct {
	binaryPath   string
	defaultModel model.ModelName
	workDir      string
	timeout      time.Duration
	pricing      map[model.ModelName]ModelPricing

	mu       sync.Mutex
	sessions map[string]SpawnOptions
}

// NewGeminiCLI creates the Gemini CLI wrapper. The binary is not required
// to exist yet; availability is checked by IsAvailable and at Spawn.
func NewGeminiCLI(cfg GeminiConfig) *GeminiCLI {
	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath = "gemini"
	}
	defaultModel := cfg.Model
	if defaultModel == "" {
		defaultModel = ModelGeminiFlash
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	pricing := cfg.Pricing
	if pricing == nil {
		pricing = DefaultGeminiPricing
	}

	return &GeminiCLI{
		binaryPath:   binaryPath,
		defaultModel: defaultModel,
		workDir:      cfg.WorkDir,
		timeout:      timeout,
		pricing:      pricing,
		sessions:     make(map[string]SpawnOptions),
	}
}

// Spawn implements Agent.
func (g *GeminiCLI) Spawn(ctx context.Context, sessionID string, opts SpawnOptions) error {
	if _, err := exec.LookPath(g.binaryPath); err != nil {
		return fmt.Errorf("gemini: %w", ErrAgentUnavailable)
	}

	if opts.Model == "" {
		opts.Model = g.defaultModel
	}
	if opts.WorkDir == "" {
		opts.WorkDir = g.workDir
	}

	g.mu.Lock()
	g.sessions[sessionID] = opts
	g.mu.Unlock()

	return nil
}

// SendAndWait implements Agent. It runs one gemini CLI invocation and
// blocks until the process exits or the timeout elapses.
func (g *GeminiCLI) SendAndWait(ctx context.Context, sessionID, message string, opts SendOptions) (*Response, error) {
	g.mu.Lock()
	sess, ok := g.sessions[sessionID]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("gemini session %s: %w", sessionID, ErrSessionNotFound)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = g.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := g.buildArgs(sess, message)
	cmd := exec.CommandContext(ctx, g.binaryPath, args...)
	if sess.WorkDir != "" {
		cmd.Dir = sess.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", ErrAgentTimeout, timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, &AgentError{
			Adapter: AdapterGemini,
			Op:      "send",
			Output:  strings.TrimSpace(stderr.String()),
			Err:     fmt.Errorf("%w: %v", ErrAgentFailed, err),
		}
	}

	resp, err := parseGeminiOutput(stdout.Bytes())
	if err != nil {
		// Fallback to raw output
		resp = &Response{Text: strings.TrimSpace(stdout.String())}
	}
	return resp, nil
}

// EstimateCost implements Agent. An unknown model prices at the default.
func (g *GeminiCLI) EstimateCost(mdl model.ModelName, inputTokens, outputTokens int) float64 {
	p, ok := g.pricing[mdl]
	if !ok {
		p = g.pricing[g.defaultModel]
	}
	return float64(inputTokens)*p.Input + float64(outputTokens)*p.Output
}

// IsAvailable implements Agent.
func (g *GeminiCLI) IsAvailable() bool {
	_, err := exec.LookPath(g.binaryPath)
	return err == nil
}

// buildArgs constructs command line arguments for the gemini CLI.
// The CLI has no system prompt flag, so a system prompt is folded into
// the message itself.
func (g *GeminiCLI) buildArgs(opts SpawnOptions, prompt string) []string {
	args := []string{"--output-format", "json"}

	if opts.Model != "" {
		args = append(args, "--model", string(opts.Model))
	}
	if opts.SystemPrompt != "" {
		prompt = opts.SystemPrompt + "\n\n" + prompt
	}

	args = append(args, "--prompt", prompt)
	return args
}

// geminiJSONOutput represents the JSON output from the gemini CLI. Field
// names vary between CLI versions, so alternates are all declared.
type geminiJSONOutput struct {
	Response string `json:"response"`
	Result   string `json:"result"`
	Stats    struct {
		PromptTokens   int `json:"promptTokens"`
		ResponseTokens int `json:"responseTokens"`
	} `json:"stats"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// parseGeminiOutput parses the JSON output from the gemini CLI.
func parseGeminiOutput(data []byte) (*Response, error) {
	data = bytes.TrimSpace(data)

	// Try direct parse first, then hunt for a JSON object mixed into
	// other output.
	var output geminiJSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start >= 0 && end > start {
			if err := json.Unmarshal(data[start:end+1], &output); err != nil {
				return nil, fmt.Errorf("parse json output: %w", err)
			}
		} else {
			return nil, fmt.Errorf("no json found in output")
		}
	}

	text := output.Response
	if text == "" {
		text = output.Result
	}
	in := output.Stats.PromptTokens
	if in == 0 {
		in = output.InputTokens
	}
	out := output.Stats.ResponseTokens
	if out == 0 {
		out = output.OutputTokens
	}

	return &Response{
		Text:  text,
		Usage: Usage{InputTokens: in, OutputTokens: out},
	}, nil
}
