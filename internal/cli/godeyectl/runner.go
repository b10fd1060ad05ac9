package godeyectl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("godeyectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "GodEye API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 120*time.Second), "HTTP timeout (e.g. 90s)")
	format := fs.String("format", "text", "output for ask: text|json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	method := http.MethodGet
	path := ""
	var body []byte
	switch command {
	case "health":
		path = "/v1/health"
	case "ready":
		path = "/v1/ready"
	case "schema":
		path = "/v1/schema"
	case "history":
		query, ok := historyQuery(rest, stderr)
		if !ok {
			return 2
		}
		path = "/v1/history" + query
	case "ask":
		question := strings.TrimSpace(strings.Join(rest, " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		method, path = http.MethodPost, "/v1/ask"
		body, _ = json.Marshal(map[string]string{"question": question})
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "ask" && *format == "text" {
		return writeAnswer(stdout, stderr, responseBody)
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func historyQuery(args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outcome := fs.String("outcome", "", "filter by outcome kind")
	surface := fs.String("surface", "", "filter by surface: web|slack|telegram|cli")
	limit := fs.Int("limit", 0, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return "", false
	}

	values := url.Values{}
	if *outcome != "" {
		values.Set("outcome", *outcome)
	}
	if *surface != "" {
		values.Set("surface", *surface)
	}
	if *limit > 0 {
		values.Set("limit", strconv.Itoa(*limit))
	}
	if len(values) == 0 {
		return "", true
	}
	return "?" + values.Encode(), true
}

type answer struct {
	Kind        string  `json:"kind"`
	SQL         string  `json:"sql"`
	Error       *string `json:"error"`
	Explanation string  `json:"explanation"`
	Table       string  `json:"table_markdown"`
	ChartTitle  string  `json:"chart_title"`
	ArchiveKey  string  `json:"archive_key"`
}

// writeAnswer prints an answer for a terminal. A failed answer exits 1.
func writeAnswer(stdout, stderr io.Writer, raw []byte) int {
	var decoded answer
	if err := json.Unmarshal(raw, &decoded); err != nil {
		_, _ = fmt.Fprintf(stderr, "decode answer: %v\n", err)
		return 1
	}
	if decoded.Error != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %s\n", decoded.Kind, *decoded.Error)
		if decoded.SQL != "" {
			_, _ = fmt.Fprintf(stderr, "\nlast SQL:\n%s\n", decoded.SQL)
		}
		return 1
	}
	if decoded.Explanation != "" {
		_, _ = fmt.Fprintln(stdout, decoded.Explanation)
		_, _ = fmt.Fprintln(stdout)
	}
	if decoded.Table != "" {
		_, _ = fmt.Fprintln(stdout, decoded.Table)
	} else {
		_, _ = fmt.Fprintln(stdout, "No results found.")
	}
	if decoded.ChartTitle != "" {
		_, _ = fmt.Fprintf(stdout, "\nchart: %s\n", decoded.ChartTitle)
	}
	_, _ = fmt.Fprintf(stdout, "\nSQL:\n%s\n", decoded.SQL)
	if decoded.ArchiveKey != "" {
		_, _ = fmt.Fprintf(stdout, "\narchived: %s\n", decoded.ArchiveKey)
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: godeyectl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema                 GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  history [-limit n]     GET /v1/history")
	_, _ = fmt.Fprintln(w, "  ask <question>         POST /v1/ask")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
