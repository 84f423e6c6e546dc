package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `help:"Path to config file" type:"path"`
	LogLevel string `default:"warn" help:"Log level"`

	Chat    ChatCmd    `cmd:"" default:"1" help:"Start an interactive chat (default)"`
	Chats   ChatsCmd   `cmd:"" help:"Manage saved conversations"`
	Models  ModelsCmd  `cmd:"" help:"List available providers and models"`
	Secret  SecretCmd  `cmd:"" help:"Manage provider API keys"`
	Migrate MigrateCmd `cmd:"" help:"Database migrations"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chatter"),
		kong.Description("Chat with hosted and on-device language models"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
