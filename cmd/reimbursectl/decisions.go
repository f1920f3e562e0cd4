package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	decEmployee      string
	decStatus        string
	decCategory      string
	decMinReimbursed float64
	decMinRequested  float64
	decLimit         int
	decOffset        int
	decOutput        string
)

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsListCmd)
	decisionsCmd.AddCommand(decisionsGetCmd)
	decisionsCmd.AddCommand(decisionsExportCmd)

	for _, c := range []*cobra.Command{decisionsListCmd, decisionsExportCmd} {
		c.Flags().StringVar(&decEmployee, "employee", "", "Filter by employee")
		c.Flags().StringVar(&decStatus, "status", "", "Filter by status (fully, partially, declined)")
		c.Flags().StringVar(&decCategory, "category", "", "Filter by category")
		c.Flags().Float64Var(&decMinReimbursed, "min-reimbursed", 0, "Minimum reimbursed amount")
		c.Flags().Float64Var(&decMinRequested, "min-requested", 0, "Minimum requested amount")
		c.Flags().IntVar(&decLimit, "limit", 20, "Maximum number of decisions")
	}
	decisionsListCmd.Flags().IntVar(&decOffset, "offset", 0, "Number of decisions to skip")
	decisionsExportCmd.Flags().StringVarP(&decOutput, "output", "o", "decisions.xlsx", "Output workbook path")
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Browse and export the decision ledger",
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored decisions, newest first",
	RunE:  runDecisionsList,
}

var decisionsGetCmd = &cobra.Command{
	Use:   "get <invoice-id>",
	Short: "Show one decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecisionsGet,
}

var decisionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decisions to an Excel workbook",
	Long: `Export matching decisions to an .xlsx workbook.

Examples:
  reimbursectl decisions export --employee John_Doe -o john.xlsx`,
	RunE: runDecisionsExport,
}

type decisionView struct {
	InvoiceID        string   `json:"invoice_id"`
	Employee         string   `json:"employee"`
	SourceFile       string   `json:"source_file"`
	Status           string   `json:"status"`
	Category         string   `json:"category"`
	RequestedAmount  float64  `json:"requested_amount"`
	ReimbursedAmount float64  `json:"reimbursed_amount"`
	DetectedAmount   float64  `json:"detected_amount"`
	Reason           string   `json:"reason"`
	PolicyReferences []string `json:"policy_references"`
	CreatedAt        string   `json:"created_at"`
}

func decisionQuery(withOffset bool) url.Values {
	q := url.Values{}
	if decEmployee != "" {
		q.Set("employee", decEmployee)
	}
	if decStatus != "" {
		q.Set("status", decStatus)
	}
	if decCategory != "" {
		q.Set("category", decCategory)
	}
	if decMinReimbursed > 0 {
		q.Set("min_reimbursed", strconv.FormatFloat(decMinReimbursed, 'f', -1, 64))
	}
	if decMinRequested > 0 {
		q.Set("min_requested", strconv.FormatFloat(decMinRequested, 'f', -1, 64))
	}
	q.Set("limit", strconv.Itoa(decLimit))
	if withOffset && decOffset > 0 {
		q.Set("offset", strconv.Itoa(decOffset))
	}
	return q
}

func getEnvelope(cmd *cobra.Command, path string, q url.Values, out interface{}) error {
	target := serverURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	raw, err := do(req)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("server error: %s", env.Error)
	}
	return json.Unmarshal(env.Data, out)
}

func runDecisionsList(cmd *cobra.Command, args []string) error {
	var decisions []decisionView
	if err := getEnvelope(cmd, "/api/decisions", decisionQuery(true), &decisions); err != nil {
		return err
	}
	if outputJSON {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tSTATUS\tCATEGORY\tREQUESTED\tREIMBURSED\tCREATED")
	for _, d := range decisions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
			d.InvoiceID, d.Employee, d.Status, d.Category, d.RequestedAmount, d.ReimbursedAmount, d.CreatedAt)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d decision(s)\n", len(decisions))
	return nil
}

func runDecisionsGet(cmd *cobra.Command, args []string) error {
	var d decisionView
	if err := getEnvelope(cmd, "/api/decisions/"+url.PathEscape(args[0]), nil, &d); err != nil {
		return err
	}
	if outputJSON {
		return nil
	}

	fmt.Printf("Invoice:    %s (%s)\n", d.InvoiceID, d.SourceFile)
	fmt.Printf("Employee:   %s\n", d.Employee)
	fmt.Printf("Status:     %s\n", d.Status)
	fmt.Printf("Category:   %s\n", d.Category)
	fmt.Printf("Requested:  %.2f\n", d.RequestedAmount)
	fmt.Printf("Reimbursed: %.2f\n", d.ReimbursedAmount)
	fmt.Printf("Detected:   %.2f\n", d.DetectedAmount)
	fmt.Printf("Created:    %s\n", d.CreatedAt)
	fmt.Printf("Reason:     %s\n", d.Reason)
	for _, ref := range d.PolicyReferences {
		fmt.Printf("  - %s\n", ref)
	}
	return nil
}

func runDecisionsExport(cmd *cobra.Command, args []string) error {
	target := serverURL + "/api/decisions/export?" + decisionQuery(false).Encode()
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	raw, err := do(req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(decOutput, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", decOutput, err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(raw), decOutput)
	return nil
}
