package ai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptSet is one system prompt plus the user message template and sampling parameters
type PromptSet struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used for invoice analysis and for the chat answerer
type PromptConfig struct {
	Analysis PromptSet `yaml:"analysis"`
	Chat     PromptSet `yaml:"chat"`
}

const defaultAnalysisSystem = `You are an expert invoice reimbursement analyst.
Analyze the invoice against the provided policy and determine reimbursement status:

Policy Guidelines to Consider:
1. Food/Beverages: ₹200/meal max (alcohol strictly excluded)
2. Travel:
   - Flights/Buses: ₹2000/trip max (inclusive of all taxes)
   - Cabs: ₹150/day for office commutes (toll fees excluded)
3. Accommodation: ₹500/night max

Required Analysis:
1. Determine expense category
2. Compare amounts against policy limits
3. Determine status (Fully/Partially/Declined)
4. Calculate reimbursable amount
5. Provide specific policy references

Respond in this EXACT format:
Category: [category]
Status: [Fully/Partially/Declined]
Requested Amount: ₹X
Reimbursed Amount: ₹Y
Reason: [explanation]
Policy References:
- [reference 1]
- [reference 2]`

const defaultAnalysisUser = `COMPANY POLICY:
{{.PolicyText}}

INVOICE DETAILS:
{{.InvoiceText}}`

const defaultChatSystem = `You are an invoice reimbursement assistant. Use the provided invoice data to answer questions.
Respond in clear markdown format with:
- **Answer**: Direct response to query
- **Sources**: Relevant invoice excerpts
- **Confidence**: High/Medium/Low`

const defaultChatUser = `{{range .History}}{{.Role}}: {{.Content}}
{{end}}User query: {{.Query}}

Relevant invoices:
{{range .Hits}}[{{.ID}}] {{.DocumentText}}
---
{{else}}No matching invoices were found.
{{end}}`

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() *PromptConfig {
	return &PromptConfig{
		Analysis: PromptSet{
			Temperature:  0,
			MaxTokens:    1000,
			System:       defaultAnalysisSystem,
			UserTemplate: defaultAnalysisUser,
		},
		Chat: PromptSet{
			Temperature:  0.3,
			MaxTokens:    1000,
			System:       defaultChatSystem,
			UserTemplate: defaultChatUser,
		},
	}
}

// LoadPrompts loads prompt configuration from a YAML file. Fields left empty in
// the file keep their built-in defaults. An empty path returns the defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts := DefaultPrompts()
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var fromFile PromptConfig
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	mergePromptSet(&prompts.Analysis, fromFile.Analysis)
	mergePromptSet(&prompts.Chat, fromFile.Chat)
	return prompts, nil
}

func mergePromptSet(dst *PromptSet, src PromptSet) {
	if src.System != "" {
		dst.System = src.System
	}
	if src.UserTemplate != "" {
		dst.UserTemplate = src.UserTemplate
	}
	if src.MaxTokens > 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.Temperature > 0 {
		dst.Temperature = src.Temperature
	}
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
