package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/primus/primacron/internal/config"
	"github.com/primus/primacron/internal/gateway"
	"github.com/primus/primacron/internal/validate"
)

// mustDefaultConfig loads configuration for introspection commands that
// don't need a listener or a real directory backend.
func mustDefaultConfig() *config.Config {
	cfg, err := config.Load(configFlag)
	if err != nil {
		cfg, _ = config.Load("")
	}
	return cfg
}

func validatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validators",
		Short: "List the event names a freshly started node would accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			node := gateway.New(mustDefaultConfig(), nil)
			registerBuiltinValidators(node)
			for _, name := range node.EventNames() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

// registerBuiltinValidators wires the small set of stream events every
// node accepts out of the box: an unauthenticated echo (arity 1, no
// arguments) and a broadcast relay that trusts its caller (arity 2, one
// argument). Operators register additional validators the same way, from
// their own code, before calling Serve.
func registerBuiltinValidators(node *gateway.Node) {
	node.RegisterValidator("echo", func(ctx context.Context, data []any, complete validate.Complete) {
		complete(nil, true, data)
	}, 1)

	node.RegisterValidator("relay", func(ctx context.Context, data []any, complete validate.Complete) {
		if len(data) < 1 || data[0] == nil {
			complete(fmt.Errorf("relay requires one argument"), false, nil)
			return
		}
		complete(nil, true, data)
	}, 2)
}
