package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultIdea = "I want to build a mobile app that has the latest AI business use cases. For the frontend, I'm thinking Flutter and Dart. For the backend, I want to use Java and Elasticsearch."

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	testColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	labelColor   = color.New(color.FgYellow)
)

type TestClient struct {
	baseURL string
	client  *http.Client
}

func NewTestClient(baseURL string, timeout time.Duration) *TestClient {
	return &TestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func main() {
	var (
		baseURL string
		timeout time.Duration
		idea    string
		output  string
	)

	client := func() *TestClient { return NewTestClient(baseURL, timeout) }
	exitOn := func(ok bool) {
		if !ok {
			os.Exit(1)
		}
	}

	root := &cobra.Command{
		Use:          "advisor-smoke",
		Short:        "Smoke tests against a running Tech Stack Advisor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the advisor")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "HTTP client timeout")

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Run health, agent card, advice and export checks",
		Run: func(cmd *cobra.Command, args []string) {
			exitOn(client().runAllTests(output))
		},
	}
	allCmd.Flags().StringVar(&output, "output", "tech-stack-advice.pdf", "Where to save the exported PDF")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check the health endpoint",
		Run: func(cmd *cobra.Command, args []string) {
			exitOn(client().testHealthCheck())
		},
	}

	cardCmd := &cobra.Command{
		Use:   "agent-card",
		Short: "Validate the A2A agent card",
		Run: func(cmd *cobra.Command, args []string) {
			exitOn(client().testAgentCard())
		},
	}

	adviceCmd := &cobra.Command{
		Use:   "advice",
		Short: "Request advice for a project idea",
		Run: func(cmd *cobra.Command, args []string) {
			exitOn(client().testAdvice(idea))
		},
	}
	adviceCmd.Flags().StringVar(&idea, "idea", defaultIdea, "Project description to send")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current advice to PDF",
		Run: func(cmd *cobra.Command, args []string) {
			exitOn(client().testExport(output))
		},
	}
	exportCmd.Flags().StringVar(&output, "output", "tech-stack-advice.pdf", "Where to save the exported PDF")

	root.AddCommand(allCmd, healthCmd, cardCmd, adviceCmd, exportCmd)

	printHeader("Tech Stack Advisor - Test Suite")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests(output string) bool {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Agent Card", tc.testAgentCard},
		{"Advice Generation", func() bool { return tc.testAdvice(defaultIdea) }},
		{"PDF Export", func() bool { return tc.testExport(output) }},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	successColor.Printf("Passed: %d\n", passed)
	errorColor.Printf("Failed: %d\n", failed)
	fmt.Printf("Total: %d\n", passed+failed)

	return failed == 0
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	url := fmt.Sprintf("%s/health", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		return false
	}

	if string(body) != "OK" {
		printError(fmt.Sprintf("Expected body 'OK', got '%s'", string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testAgentCard() bool {
	printTestHeader("Testing Agent Card Endpoint")

	url := fmt.Sprintf("%s/.well-known/agent.json", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var agentCard map[string]interface{}
	if err := json.Unmarshal(body, &agentCard); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	requiredFields := []string{"name", "description", "version", "capabilities", "endpoints"}
	for _, field := range requiredFields {
		if _, ok := agentCard[field]; !ok {
			printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}

	printSuccess("Agent card is valid")
	printJSON(body)
	return true
}

func (tc *TestClient) testAdvice(idea string) bool {
	printTestHeader("Testing Advice Generation")

	url := fmt.Sprintf("%s/api/advice", tc.baseURL)
	fmt.Printf("POST %s\n", url)
	labelColor.Print("Project: ")
	fmt.Println(idea)

	payload, _ := json.Marshal(map[string]string{"query": idea})

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " waiting for the model..."
	s.Start()
	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(payload))
	s.Stop()
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var advice struct {
		ProjectOverview  map[string]interface{}   `json:"project_overview"`
		FrontendAnalysis map[string]interface{}   `json:"frontend_analysis"`
		BackendAnalysis  map[string]interface{}   `json:"backend_analysis"`
		AIUseCases       []map[string]interface{} `json:"ai_use_cases"`
	}
	if err := json.Unmarshal(body, &advice); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if advice.ProjectOverview == nil || advice.FrontendAnalysis == nil || advice.BackendAnalysis == nil || advice.AIUseCases == nil {
		printError("Advice is missing required sections")
		return false
	}

	printSuccess(fmt.Sprintf("Advice generated with %d AI use case(s)", len(advice.AIUseCases)))
	printJSON(body)
	return true
}

func (tc *TestClient) testExport(output string) bool {
	printTestHeader("Testing PDF Export")

	url := fmt.Sprintf("%s/export", tc.baseURL)
	fmt.Printf("POST %s\n", url)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " rendering report..."
	s.Start()
	resp, err := tc.client.Post(url, "application/x-www-form-urlencoded", nil)
	s.Stop()
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		return false
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		printError(fmt.Sprintf("Expected application/pdf, got %s", ct))
		return false
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		printError("Response is not a PDF document")
		return false
	}

	if err := os.WriteFile(output, body, 0o644); err != nil {
		printError(fmt.Sprintf("Failed to save PDF: %v", err))
		return false
	}

	printSuccess(fmt.Sprintf("Exported %d bytes to %s", len(body), output))
	return true
}

func printHeader(text string) {
	line := strings.Repeat("=", len(text)+4)
	headerColor.Printf("\n%s\n= %s =\n%s\n\n", line, text, line)
}

func printTestHeader(text string) {
	testColor.Printf("[TEST] %s\n", text)
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	successColor.Printf("✓ %s\n", text)
}

func printError(text string) {
	errorColor.Printf("✗ %s\n", text)
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		labelColor.Println("\nResponse:")
		fmt.Println(prettyJSON.String())
	}
}
