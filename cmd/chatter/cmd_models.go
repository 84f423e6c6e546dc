package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/mkoskin/chatter/src/config"
	"github.com/mkoskin/chatter/src/localclient"
	"github.com/mkoskin/chatter/src/registry"
)

// ModelsCmd lists available providers and models
type ModelsCmd struct {
	Refresh bool   `help:"Probe for on-device models before listing"`
	Format  string `help:"Output format (table, json)" default:"table"`
}

// Run executes the models command
func (c *ModelsCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	logger := createCLILogger(cli.LogLevel)

	var localOpts []localclient.Option
	if cfg.Providers.Local.BaseURL != "" {
		localOpts = append(localOpts, localclient.WithBaseURL(cfg.Providers.Local.BaseURL))
	}
	localClient := localclient.New(logger, localOpts...)
	reg := registry.New(logger, localclient.NewProbe(localClient, logger))

	if c.Refresh {
		if _, err := reg.Refresh(context.Background()); err != nil {
			logger.Warn("provider refresh failed", "error", err)
		}
	}

	providers := reg.List()
	switch c.Format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(providers)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tKIND\tNEEDS KEY")
		for _, p := range providers {
			for _, m := range p.Models {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", p.ID, m.ID, m.Kind, p.RequiresAPIKey)
			}
		}
		return w.Flush()
	default:
		return fmt.Errorf("invalid format: %s", c.Format)
	}
}
