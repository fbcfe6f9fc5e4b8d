package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/primus/primacron/internal/config"
	"github.com/primus/primacron/internal/directory"
	"github.com/primus/primacron/internal/session"
)

func directoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Inspect the session directory",
	}
	cmd.AddCommand(directoryDumpCmd())
	return cmd
}

// directoryDumpCmd prints a session's directory entry and tailgator set,
// YAML-encoded for easy eyeballing during operations.
func directoryDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <account> <session>",
		Short: "Show the directory entry for one (account, session) pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			dirClient, err := buildDirectoryClient(cfg)
			if err != nil {
				return err
			}

			dir := session.NewDirectory(dirClient, cfg.Namespace, time.Duration(cfg.Timeout)*time.Second)

			account, sess := args[0], args[1]
			ctx := context.Background()

			nodeURL, connID, ok, err := dir.Lookup(ctx, account, sess)
			if err != nil {
				return fmt.Errorf("looking up session: %w", err)
			}

			out := struct {
				Account    string   `yaml:"account"`
				Session    string   `yaml:"session"`
				Attached   bool     `yaml:"attached"`
				NodeURL    string   `yaml:"node_url,omitempty"`
				ConnID     string   `yaml:"connection_id,omitempty"`
				Tailgators []string `yaml:"tailgators"`
			}{Account: account, Session: sess, Attached: ok, NodeURL: nodeURL, ConnID: connID}

			out.Tailgators, err = tailgators(ctx, dirClient, cfg.Namespace, account, sess)
			if err != nil {
				return fmt.Errorf("listing tailgators: %w", err)
			}

			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(out)
		},
	}
	return cmd
}

func tailgators(ctx context.Context, client directory.Client, namespace, account, sess string) ([]string, error) {
	key := fmt.Sprintf("%s::%s::%s::pipe", namespace, account, sess)
	return client.Members(ctx, key)
}
