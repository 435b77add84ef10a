// Command ingest loads documents from a JSONL file and enqueues them for
// indexing through the gateway's internal ingest endpoint.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type document struct {
	SourceID string         `json:"source_id"`
	Title    string         `json:"title,omitempty"`
	URL      string         `json:"url,omitempty"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func main() {
	var (
		serverURL string
		filePath  string
		delayMS   int
	)

	rootCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Enqueue documents from a JSONL file for indexing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(serverURL, filePath, time.Duration(delayMS)*time.Millisecond)
		},
	}
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:9020", "gateway base URL")
	rootCmd.Flags().StringVar(&filePath, "file", "", "JSONL file, one document per line (- for stdin)")
	rootCmd.Flags().IntVar(&delayMS, "delay-ms", 50, "pause between enqueues")
	_ = rootCmd.MarkFlagRequired("file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(serverURL, filePath string, delay time.Duration) error {
	var in io.Reader
	if filePath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	client := &http.Client{Timeout: 30 * time.Second}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line, enqueued, failed := 0, 0, 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: invalid json: %v\n", line, err)
			failed++
			continue
		}
		if doc.SourceID == "" || doc.Body == "" {
			fmt.Fprintf(os.Stderr, "line %d: source_id and body are required\n", line)
			failed++
			continue
		}

		if err := enqueue(client, serverURL, raw); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", line, err)
			failed++
		} else {
			enqueued++
		}

		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	fmt.Printf("enqueued %d documents, %d failed\n", enqueued, failed)
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func enqueue(client *http.Client, serverURL string, payload []byte) error {
	resp, err := client.Post(serverURL+"/internal/ingest", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("enqueue: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
