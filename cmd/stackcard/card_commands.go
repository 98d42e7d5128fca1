package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/stacksmith/stackcard/client"
)

func serverFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"STACKCARD_SERVER_URL"},
	}
}

func filterFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "jq expression applied to the JSON output (repeatable)",
	}
}

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the stackcard service",
		Subcommands: []*cli.Command{
			dataCommand(),
			promptCommand(),
			cardCommand(),
		},
	}
}

func dataCommand() *cli.Command {
	return &cli.Command{
		Name:      "data",
		Usage:     "Fetch the aggregated wallet record for an address",
		ArgsUsage: "ADDRESS",
		Flags:     []cli.Flag{serverFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cl := newServiceClient(c.String("server"))
			data, err := cl.Data(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			return printJSON(data, c.StringSlice("filter"))
		},
	}
}

func promptCommand() *cli.Command {
	return &cli.Command{
		Name:      "prompt",
		Usage:     "Preview the card prompt for an address (free)",
		ArgsUsage: "ADDRESS",
		Flags:     []cli.Flag{serverFlag(), filterFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cl := newServiceClient(c.String("server"))
			pr, err := cl.Prompt(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			return printJSON(pr, c.StringSlice("filter"))
		},
	}
}

func cardCommand() *cli.Command {
	return &cli.Command{
		Name:      "card",
		Usage:     "Fetch the rendered card; without --payment-txid this prints the payment challenge",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			serverFlag(),
			filterFlag(),
			&cli.StringFlag{
				Name:    "payment-txid",
				Aliases: []string{"p"},
				Usage:   "Transaction id of the payment contract call",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "card.png",
				Usage:   "File to write the card image to",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cl := newServiceClient(c.String("server"))
			img, challenge, err := cl.Card(c.Context, c.Args().Get(0), c.String("payment-txid"))
			if err != nil {
				if challenge != nil {
					// Not a failure: show the caller how to pay.
					return printJSON(challenge, c.StringSlice("filter"))
				}
				return err
			}

			out := c.String("output")
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return fmt.Errorf("failed to write image: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "wrote %d bytes to %s\n", len(img), out)
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: []cli.Flag{serverFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, "GET", c.String("server")+"/health", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
			}
			fmt.Fprintln(c.App.Writer, "OK")
			return nil
		},
	}
}

func newServiceClient(serverURL string) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(serverURL, nil, logger)
}

// printJSON writes v as indented JSON, optionally piped through jq filters.
func printJSON(v any, filters []string) error {
	if len(filters) == 0 {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	// Round-trip through encoding/json so gojq sees plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	for _, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}

		iter := code.Run(doc)
		for {
			result, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := result.(error); isErr {
				return fmt.Errorf("jq filter %q failed: %w", filter, err)
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
	}
	return nil
}
