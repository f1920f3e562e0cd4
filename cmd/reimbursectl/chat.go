package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatFilters []string
	chatLimit   int
)

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringArrayVar(&chatFilters, "filter", nil, "Metadata filter as key=value, repeatable (e.g. employee=John_Doe, reimbursed_amount=1000)")
	chatCmd.Flags().IntVar(&chatLimit, "limit", 0, "Maximum number of decisions to retrieve (server default when 0)")
}

var chatCmd = &cobra.Command{
	Use:   "chat <query>",
	Short: "Ask a question about stored decisions",
	Long: `Search stored decisions by meaning and metadata and print the answer.

Equality filters: employee, status, category, date.
Threshold filters: reimbursed_amount, requested_amount (match values >= the given amount).

Examples:
  reimbursectl chat "declined meal invoices"
  reimbursectl chat "travel claims" --filter employee=John_Doe --filter reimbursed_amount=1000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

type chatRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func runChat(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(chatFilters)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(chatRequest{
		Query:   strings.Join(args, " "),
		Filters: filters,
		Limit:   chatLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, serverURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := do(req)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(raw)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	fmt.Println(resp.Response)
	return nil
}

func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return filters, nil
}
