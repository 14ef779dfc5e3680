// Command habctl is a command line client for the habitability server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const usage = `usage: habctl [flags] <command>

commands:
  health              show server readiness
  features            list required features
  predict -f FILE     predict one planet read from a JSON file ("-" for stdin)
  batch -f FILE       predict a JSON array of planets
  history [-n N]      show recent predictions
  demo                run the sample walkthrough
  bench [-n N] [-c C] send N predictions with C workers

flags:
`

func main() {
	var (
		baseURL = flag.String("url", envOr("HABCTL_URL", "http://localhost:5000"), "Server base URL")
		timeout = flag.Duration("timeout", 10*time.Second, "Request timeout")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := NewClient(*baseURL, *timeout)
	if err := run(client, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "habctl:", err)
		os.Exit(1)
	}
}

func run(client *Client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "health":
		return show(out, client.Health)
	case "features":
		return show(out, client.Features)
	case "predict":
		fs := flag.NewFlagSet("predict", flag.ContinueOnError)
		file := fs.String("f", "-", "JSON file with one planet")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var planet any
		if err := readJSON(*file, &planet); err != nil {
			return err
		}
		return show(out, func() (*Response, error) { return client.Predict(planet) })
	case "batch":
		fs := flag.NewFlagSet("batch", flag.ContinueOnError)
		file := fs.String("f", "-", "JSON file with an array of planets")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var items []any
		if err := readJSON(*file, &items); err != nil {
			return err
		}
		return show(out, func() (*Response, error) { return client.BatchPredict(items) })
	case "history":
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		n := fs.Int("n", 10, "Number of records")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return show(out, func() (*Response, error) { return client.History(*n) })
	case "demo":
		return demo(client, out)
	case "bench":
		fs := flag.NewFlagSet("bench", flag.ContinueOnError)
		n := fs.Int("n", 1000, "Total requests")
		c := fs.Int("c", 8, "Concurrent workers")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		printBench(out, runBench(ctx, client, earthLike, *n, *c))
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func show(out io.Writer, call func() (*Response, error)) error {
	resp, err := call()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Status: %d\n", resp.Status)
	return printJSON(out, resp.Body)
}

// demo walks through every endpoint with the sample planets.
func demo(client *Client, out io.Writer) error {
	steps := []struct {
		title string
		call  func() (*Response, error)
	}{
		{"Checking API health", client.Health},
		{"Getting required features", client.Features},
		{"Predicting an Earth-like exoplanet", func() (*Response, error) { return client.Predict(earthLike) }},
		{"Predicting a hot Jupiter", func() (*Response, error) { return client.Predict(hotJupiter) }},
		{"Batch prediction (3 planets)", func() (*Response, error) {
			return client.BatchPredict([]any{earthLike, hotJupiter, superEarth})
		}},
		{"Testing invalid input handling", func() (*Response, error) { return client.Predict(invalidPlanet) }},
	}
	for i, step := range steps {
		fmt.Fprintf(out, "\n%d. %s...\n", i+1, step.title)
		if err := show(out, step.call); err != nil {
			return fmt.Errorf("%s: %w", step.title, err)
		}
	}
	return nil
}

func readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
