package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/venkytv/nats-errortrigger/internal/monitor"
)

func main() {
	statusURL := flag.String("url", envDefault("STATUS_URL", "http://127.0.0.1:8080/"), "Status endpoint URL")
	timeout := flag.Duration("timeout", envDuration("STATUS_TIMEOUT", 3*time.Second), "HTTP request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := fetchStatus(ctx, *statusURL)
	if err != nil {
		log.Fatalf("fetch status: %v", err)
	}

	printStatus(resp, os.Stdout)
}

func fetchStatus(ctx context.Context, url string) (monitor.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return monitor.Status{}, fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return monitor.Status{}, fmt.Errorf("request status: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return monitor.Status{}, fmt.Errorf("unexpected status %s: %s", res.Status, strings.TrimSpace(string(body)))
	}

	var status monitor.Status
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return monitor.Status{}, fmt.Errorf("decode response: %w", err)
	}

	return status, nil
}

func printStatus(resp monitor.Status, w io.Writer) {
	if resp.ObservedAt.IsZero() {
		resp.ObservedAt = time.Now()
	}
	fmt.Fprintf(w, "Observed at: %s\n", resp.ObservedAt.Format(time.RFC3339))

	if len(resp.Bindings) == 0 {
		fmt.Fprintln(w, "No bindings configured.")
		return
	}

	fires := 0
	fmt.Fprintln(w)

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tBINDING\tPOLICY\tKEY\tRETAINED\tWINDOW\tFIRES\tLAST FIRED")
	for _, b := range resp.Bindings {
		if len(b.Aggregators) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n", "IDLE", b.Name, b.Policy, fallback(b.Function, "-"), "-", fallback(b.Window, "-"), 0, "-")
			continue
		}
		for _, agg := range b.Aggregators {
			fires += agg.Fires
			status, retained := summarizeAggregator(b, agg)

			lastFired := "-"
			if agg.LastFired != nil {
				lastFired = agg.LastFired.Format(time.RFC3339)
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n", status, b.Name, b.Policy, agg.Key, retained, fallback(b.Window, "-"), agg.Fires, lastFired)
		}
	}
	_ = tw.Flush()

	out := buf.String()
	if shouldColor(w) {
		out = colorizeStatuses(out)
	}

	fmt.Fprint(w, out)
	fmt.Fprintf(w, "\n%d fire(s) across %d binding(s)\n", fires, len(resp.Bindings))
}

func summarizeAggregator(b monitor.BindingStatus, agg monitor.AggregatorStatus) (string, string) {
	status := "OK"
	switch {
	case agg.Retained > 0:
		status = "PENDING"
	case agg.Fires > 0:
		status = "FIRED"
	}
	return status, fmt.Sprintf("%d/%d", agg.Retained, b.Threshold)
}

func fallback(v, defaultVal string) string {
	if strings.TrimSpace(v) == "" {
		return defaultVal
	}
	return v
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func shouldColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func applyColor(s string, colorize bool, code int) string {
	if !colorize {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}

func colorizeStatuses(out string) string {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if line == "" || strings.HasPrefix(line, "STATUS") {
			continue
		}
		spaceIdx := strings.IndexByte(line, ' ')
		if spaceIdx <= 0 {
			continue
		}
		status := line[:spaceIdx]
		rest := line[spaceIdx:]

		switch status {
		case "FIRED":
			status = applyColor(status, true, 31)
		case "PENDING":
			status = applyColor(status, true, 33)
		case "OK", "IDLE":
			status = applyColor(status, true, 32)
		default:
			// leave as-is
		}
		lines[i] = status + rest
	}
	return strings.Join(lines, "\n")
}
