// Package main implements reimbursectl, a CLI for the invoice reimbursement HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the reimbursement server
	serverURL string
	// requestTimeout bounds every call; analysis of a large batch can take minutes
	requestTimeout time.Duration
	outputJSON     bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reimbursectl",
	Short: "CLI for the invoice reimbursement server",
	Long: `reimbursectl submits invoice batches for analysis, asks questions about
past decisions and exports the decision ledger.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "reimbursement server URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 10*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print raw JSON responses")
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Long: `Check the health status of the reimbursement server and its dependencies.

Examples:
  reimbursectl health
  reimbursectl health --server http://localhost:9000`,
	RunE: runHealth,
}

// HealthResponse matches the data of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	var health HealthResponse
	if err := json.Unmarshal(env.Data, &health); err != nil {
		return fmt.Errorf("failed to decode health data: %w", err)
	}

	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	fmt.Printf("Version: %s\n", health.Version)
	for name, state := range health.Checks {
		fmt.Printf("  %-14s %s\n", name, state)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server is %s", health.Status)
	}
	return nil
}

// do sends req and returns the body of a 2xx response
func do(req *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: requestTimeout}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

// errorMessage pulls the message out of either error body shape the server uses
func errorMessage(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return string(body)
}

func printJSON(body []byte) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
