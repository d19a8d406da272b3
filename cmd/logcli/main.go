// cmd/logcli is the CLI client for the replicated log, built with Cobra.
//
// Usage:
//
//	logcli append "hello world" -w 2       --server http://localhost:8000
//	logcli list                            --server http://localhost:8001
//	logcli health                          --server http://localhost:8000
//
// Instead of repeating --server, register named contexts:
//
//	logcli ctx set local http://localhost:8000
//	logcli ctx use local
//	logcli append "hello world"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"replicated-log/internal/cliconf"
	"replicated-log/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:          "logcli",
		Short:        "CLI client for the replicated message log",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s", "",
		"Node address (overrides the current context)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second,
		"HTTP request timeout")

	root.AddCommand(appendCmd(), listCmd(), healthCmd(), ctxCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveServer picks the target node: the --server flag wins, then the
// current context from the config file.
func resolveServer() (string, error) {
	if serverAddr != "" {
		return serverAddr, nil
	}
	cfg, err := cliconf.Load()
	if err != nil {
		return "", err
	}
	if _, ctx, ok := cfg.Current(); ok {
		return ctx.Server, nil
	}
	return "", fmt.Errorf("no server: pass --server or set a context with 'logcli ctx use'")
}

func newClient() (*client.Client, error) {
	server, err := resolveServer()
	if err != nil {
		return nil, err
	}
	return client.New(server, timeout), nil
}

// ─── append ──────────────────────────────────────────────────────────────────

func appendCmd() *cobra.Command {
	var writeConcern int

	cmd := &cobra.Command{
		Use:   "append <message>",
		Short: "Append a message to the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Append(context.Background(), args[0], writeConcern)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&writeConcern, "write-concern", "w", 1,
		"Total nodes (primary included) that must acknowledge the write")
	return cmd
}

// ─── list ────────────────────────────────────────────────────────────────────

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the node's visible messages in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			messages, err := c.Messages(context.Background())
			if err != nil {
				return err
			}
			for i, m := range messages {
				fmt.Printf("%d\t%s\n", i+1, m)
			}
			return nil
		},
	}
}

// ─── health ──────────────────────────────────────────────────────────────────

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show cluster health as seen by the primary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			health, err := c.Health(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(health)
			return nil
		},
	}
}

// ─── ctx ─────────────────────────────────────────────────────────────────────

func ctxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctx",
		Short: "Manage named server contexts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name> <server-url>",
			Short: "Add or update a context",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := cliconf.Load()
				if err != nil {
					return err
				}
				cfg.Set(args[0], cliconf.Context{Server: args[1]})
				if cfg.CurrentContext == "" {
					cfg.CurrentContext = args[0]
				}
				return cfg.Save(cliconf.Path())
			},
		},
		&cobra.Command{
			Use:   "use <name>",
			Short: "Select the current context",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := cliconf.Load()
				if err != nil {
					return err
				}
				if err := cfg.Use(args[0]); err != nil {
					return err
				}
				return cfg.Save(cliconf.Path())
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List known contexts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := cliconf.Load()
				if err != nil {
					return err
				}
				for name, ctx := range cfg.Contexts {
					marker := " "
					if name == cfg.CurrentContext {
						marker = "*"
					}
					fmt.Printf("%s %s\t%s\n", marker, name, ctx.Server)
				}
				return nil
			},
		},
	)
	return cmd
}

func prettyPrint(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
