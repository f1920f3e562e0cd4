package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/extraction"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/external/openai"
	"github.com/garyjia/invoice-reimbursement/pkg/utils"
)

func main() {
	// Parse command line flags
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	baseURL := flag.String("base-url", "", "OpenAI-compatible endpoint (or set OPENAI_BASE_URL)")
	model := flag.String("model", "gpt-4o-mini", "Chat model used for the analysis")
	policyFile := flag.String("policy", "", "Path to the policy PDF")
	invoiceFile := flag.String("invoice", "", "Path to one invoice PDF")
	promptsFile := flag.String("prompts", "configs/prompts.yaml", "Path to prompt overrides")
	timeout := flag.Duration("timeout", 60*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger, err := utils.NewCLILogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get API key from flag or environment
	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *baseURL == "" {
		*baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if *apiKey == "" || *policyFile == "" || *invoiceFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: test-analysis --policy policy.pdf --invoice invoice.pdf [--key sk-...] [--model gpt-4o-mini]\n")
		os.Exit(1)
	}

	fmt.Println("=== Invoice Analysis Test ===")
	fmt.Println("Configuration:")
	fmt.Printf("  Policy:  %s\n", *policyFile)
	fmt.Printf("  Invoice: %s\n", *invoiceFile)
	fmt.Printf("  Model:   %s\n", *model)
	fmt.Printf("  Timeout: %v\n", *timeout)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor := extraction.NewPDFTextExtractor(logger)
	policyText, err := readPDF(ctx, extractor, *policyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: policy: %v\n", err)
		os.Exit(1)
	}
	invoiceText, err := readPDF(ctx, extractor, *invoiceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invoice: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Extracted %d policy chars and %d invoice chars\n", len(policyText), len(invoiceText))
	if amounts := extraction.ExtractAmounts(invoiceText); len(amounts) > 0 {
		fmt.Printf("  Detected invoice total: %.2f\n", amounts["INR"])
	}

	prompts, err := ai.LoadPrompts(*promptsFile)
	if errors.Is(err, os.ErrNotExist) {
		prompts, err = ai.DefaultPrompts(), nil
		fmt.Println("  Prompts file not found, using built-in prompts")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: loading prompts: %v\n", err)
		os.Exit(1)
	}

	client := openai.NewClient(openai.ClientConfig{
		APIKey:  *apiKey,
		BaseURL: *baseURL,
		Model:   *model,
	}, logger)
	analyzer := ai.NewAnalyzer(client, prompts, ai.AnalyzerOptions{Timeout: *timeout}, logger)

	fmt.Println("\nSending analysis request...")
	start := time.Now()
	record := analyzer.Analyze(ctx, policyText, invoiceText)
	logger.Debug("Analysis finished", zap.Duration("elapsed", time.Since(start)))

	if record.IsFallback() {
		fmt.Fprintf(os.Stderr, "❌ Analysis failed: %s\n", record.Reason)
		os.Exit(1)
	}
	fmt.Printf("✓ Response received in %v\n\n", time.Since(start))

	fmt.Println("=== Decision ===")
	fmt.Printf("Status:            %s\n", record.Status)
	fmt.Printf("Model category:    %s\n", record.Category)
	fmt.Printf("Indexed category:  %s\n", ai.MetadataCategory(record))
	fmt.Printf("Requested amount:  %.2f\n", record.RequestedAmount)
	fmt.Printf("Reimbursed amount: %.2f\n", record.ReimbursedAmount)
	fmt.Printf("Reason: %s\n", record.Reason)

	fmt.Println("\n=== Full Record (JSON) ===")
	jsonBytes, _ := json.MarshalIndent(record, "", "  ")
	fmt.Println(string(jsonBytes))
}

func readPDF(ctx context.Context, extractor *extraction.PDFTextExtractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return extractor.ExtractText(ctx, data)
}
