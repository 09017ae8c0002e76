package duet

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// embeddedPrompts holds the default prompts embedded in the binary.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// PromptLoader loads and renders prompt templates. Projects can override
// the built-in prompts by dropping same-named .txt files in .duet/prompts/.
type PromptLoader struct {
	dirs    []string
	cache   map[string]*template.Template
	funcMap template.FuncMap
}

// NewPromptLoader creates a prompt loader for the given project directory.
// It searches for prompts in the following order:
// 1. .duet/prompts/ in project
// 2. prompts/ in project
// 3. Embedded prompts in the binary
func NewPromptLoader(projectDir string) *PromptLoader {
	return &PromptLoader{
		dirs: []string{
			filepath.Join(projectDir, ".duet", "prompts"),
			filepath.Join(projectDir, "prompts"),
		},
		cache:   make(map[string]*template.Template),
		funcMap: defaultPromptFuncMap(),
	}
}

// AddSearchDir adds a directory to search for prompts, ahead of the defaults.
func (l *PromptLoader) AddSearchDir(dir string) {
	l.dirs = append([]string{dir}, l.dirs...)
}

// Load loads a prompt by name without variable substitution.
func (l *PromptLoader) Load(name string) (string, error) {
	return l.LoadWithVars(name, nil)
}

// LoadWithVars loads and renders a prompt with variable substitution.
func (l *PromptLoader) LoadWithVars(name string, vars map[string]any) (string, error) {
	tmpl, err := l.getTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}

	return buf.String(), nil
}

// Exists checks if a prompt exists.
func (l *PromptLoader) Exists(name string) bool {
	_, err := l.loadRaw(name)
	return err == nil
}

// getTemplate loads and caches a template.
func (l *PromptLoader) getTemplate(name string) (*template.Template, error) {
	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}

	content, err := l.loadRaw(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	l.cache[name] = tmpl
	return tmpl, nil
}

// loadRaw loads raw prompt content without parsing.
func (l *PromptLoader) loadRaw(name string) (string, error) {
	filename := name + ".txt"

	for _, dir := range l.dirs {
		path := filepath.Join(dir, filename)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("prompt not found: %s", name)
	}

	return string(data), nil
}

// defaultPromptFuncMap returns default template functions.
func defaultPromptFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":    strings.Join,
		"trim":    strings.TrimSpace,
		"upper":   strings.ToUpper,
		"lower":   strings.ToLower,
		"replace": strings.ReplaceAll,
		"indent":  indentString,
	}
}

// indentString indents all lines of a string.
func indentString(indent int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// PromptBuilder helps construct prompts programmatically.
type PromptBuilder struct {
	parts []string
}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Add adds text to the prompt.
func (b *PromptBuilder) Add(text string) *PromptBuilder {
	b.parts = append(b.parts, text)
	return b
}

// AddSection adds a markdown section with header.
func (b *PromptBuilder) AddSection(header, content string) *PromptBuilder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n\n%s", header, content))
	return b
}

// Build returns the constructed prompt.
func (b *PromptBuilder) Build() string {
	return strings.Join(b.parts, "\n\n")
}
