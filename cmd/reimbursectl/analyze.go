package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	anEmployee string
	anPolicy   string
	anInvoices string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&anEmployee, "employee", "", "Employee name (required)")
	analyzeCmd.Flags().StringVar(&anPolicy, "policy", "", "Path to the policy PDF (required)")
	analyzeCmd.Flags().StringVar(&anInvoices, "invoices", "", "Path to the ZIP of invoice PDFs (required)")
	_ = analyzeCmd.MarkFlagRequired("employee")
	_ = analyzeCmd.MarkFlagRequired("policy")
	_ = analyzeCmd.MarkFlagRequired("invoices")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a batch of invoices against a policy",
	Long: `Upload a policy PDF and a ZIP of invoice PDFs for one employee.
Every invoice is analyzed, stored for later search and reported here.

Examples:
  reimbursectl analyze --employee "John Doe" --policy policy.pdf --invoices invoices.zip`,
	RunE: runAnalyze,
}

// analyzeResponse mirrors POST /analyze-invoice
type analyzeResponse struct {
	Status            string `json:"status"`
	ProcessedInvoices int    `json:"processed_invoices"`
	Results           []struct {
		InvoiceID        string  `json:"invoice_id"`
		Filename         string  `json:"filename"`
		Status           string  `json:"status"`
		Category         string  `json:"category"`
		RequestedAmount  float64 `json:"requested_amount"`
		ReimbursedAmount float64 `json:"reimbursed_amount"`
		Reason           string  `json:"reason"`
	} `json:"results"`
	Skipped []struct {
		Filename string `json:"filename"`
		Reason   string `json:"reason"`
	} `json:"skipped"`
	Failed []struct {
		Filename string `json:"filename"`
		Error    string `json:"error"`
	} `json:"failed"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	body, contentType, err := buildAnalyzeForm(anEmployee, anPolicy, anInvoices)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, serverURL+"/analyze-invoice", body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := do(req)
	if err != nil {
		return err
	}
	if outputJSON {
		return printJSON(raw)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Processed %d invoice(s) for %s\n\n", resp.ProcessedInvoices, anEmployee)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tSTATUS\tCATEGORY\tREQUESTED\tREIMBURSED")
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
			r.InvoiceID, r.Filename, r.Status, r.Category, r.RequestedAmount, r.ReimbursedAmount)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, s := range resp.Skipped {
		fmt.Printf("skipped %s: %s\n", s.Filename, s.Reason)
	}
	for _, f := range resp.Failed {
		fmt.Printf("failed  %s: %s\n", f.Filename, f.Error)
	}
	return nil
}

func buildAnalyzeForm(employee, policyPath, zipPath string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("employee_name", employee); err != nil {
		return nil, "", err
	}
	if err := attachFile(mw, "policy_pdf", policyPath); err != nil {
		return nil, "", err
	}
	if err := attachFile(mw, "invoices_zip", zipPath); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
