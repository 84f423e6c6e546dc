package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/mkoskin/chatter/src/config"
	"github.com/mkoskin/chatter/src/secrets"
)

// SecretCmd manages provider API keys
type SecretCmd struct {
	Set   SecretSetCmd   `cmd:"" help:"Store an API key for a provider"`
	Check SecretCheckCmd `cmd:"" help:"Check whether a provider has a key configured"`
	Unset SecretUnsetCmd `cmd:"" help:"Remove a provider's API key"`
}

func openSecrets() (*secrets.Store, error) {
	return secrets.Open(config.GetDefaultStoragePaths().SecretsDir)
}

// SecretSetCmd stores an API key
type SecretSetCmd struct {
	Provider string `arg:"" help:"Provider id (openai, google)"`
	Value    string `arg:"" help:"The API key"`
}

// Run executes the secret set command
func (c *SecretSetCmd) Run(ctx *kong.Context, cli *CLI) error {
	store, err := openSecrets()
	if err != nil {
		return err
	}
	if err := store.Set(c.Provider, c.Value); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	fmt.Printf("Stored API key for %s\n", c.Provider)
	return nil
}

// SecretCheckCmd reports whether a key is configured. The key itself is
// never printed.
type SecretCheckCmd struct {
	Provider string `arg:"" help:"Provider id"`
}

// Run executes the secret check command
func (c *SecretCheckCmd) Run(ctx *kong.Context, cli *CLI) error {
	store, err := openSecrets()
	if err != nil {
		return err
	}
	value, err := store.Get(c.Provider)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Printf("No API key configured for %s\n", c.Provider)
	} else {
		fmt.Printf("API key configured for %s\n", c.Provider)
	}
	return nil
}

// SecretUnsetCmd removes a stored key
type SecretUnsetCmd struct {
	Provider string `arg:"" help:"Provider id"`
}

// Run executes the secret unset command
func (c *SecretUnsetCmd) Run(ctx *kong.Context, cli *CLI) error {
	store, err := openSecrets()
	if err != nil {
		return err
	}
	if err := store.Set(c.Provider, ""); err != nil {
		return fmt.Errorf("failed to remove secret: %w", err)
	}
	fmt.Printf("Removed API key for %s\n", c.Provider)
	return nil
}
