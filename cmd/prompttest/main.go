package main

// Run a single document through extraction, classification and role
// analysis against the configured LLM:
//   go run ./cmd/prompttest -doc fixtures/02_CCTP_techniques.pdf

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tender-backend/internal/analyses"
	"tender-backend/internal/classify"
	"tender-backend/internal/config"
	"tender-backend/internal/extract"
	openai "tender-backend/internal/llm/openai"
)

func main() {
	cfg := config.Load()

	docPath := flag.String("doc", "", "Path to document file (pdf, docx, xlsx or txt)")
	roleOverride := flag.String("role", "", "Force a document role instead of classifying")
	outPath := flag.String("out", "", "Path to write the analysis payload (optional)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*docPath) == "" {
		exitErr("document path is required")
	}
	data, err := os.ReadFile(*docPath)
	if err != nil {
		exitErr(fmt.Sprintf("read document: %v", err))
	}
	fileName := filepath.Base(*docPath)

	result, err := extract.FromBytes(context.Background(), data, "", fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract text: %v", err))
	}

	role, source := classify.Classify(fileName, result.Text)
	if *roleOverride != "" {
		role = classify.Role(*roleOverride)
		source = classify.SourceNone
	}
	fmt.Printf("role=%s source=%s chars=%d\n", role, source, len(result.Text))
	if !role.Valid() {
		exitErr("document role could not be determined; pass -role")
	}

	client, err := openai.NewClient(cfg.OpenAIAPIKey, *model, cfg.EmbeddingModel, 120*time.Second)
	if err != nil {
		exitErr(fmt.Sprintf("llm client: %v", err))
	}

	svc := &analyses.Service{
		Repo:        analyses.NewMemoryRepo(),
		LLM:         client,
		Model:       *model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	analysis, err := svc.Analyze(context.Background(), analyses.AnalyzeRequest{
		RunID:      "prompttest",
		DocumentID: "prompttest-doc",
		Role:       role,
		FileName:   fileName,
		Text:       result.Text,
	})
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}
	if analysis.Status != analyses.StatusCompleted {
		exitErr(fmt.Sprintf("analysis failed: %s: %s", analysis.ErrorCode, deref(analysis.ErrorMessage)))
	}

	encoded := analysis.Payload.Encode()
	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, []byte(encoded), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
		fmt.Printf("payload written to %s\n", *outPath)
		return
	}
	fmt.Println(encoded)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
