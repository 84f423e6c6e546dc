package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/mkoskin/chatter/src/app"
	"github.com/mkoskin/chatter/src/chatsdk"
	"github.com/mkoskin/chatter/src/config"
	"github.com/mkoskin/chatter/src/controller"
)

// ChatCmd starts a conversation, interactive or one-shot.
type ChatCmd struct {
	ChatID   string   `help:"Resume an existing conversation by id"`
	Provider string   `help:"Provider for a new conversation (defaults to config)"`
	Model    string   `help:"Model for a new conversation (defaults to config)"`
	Attach   []string `help:"Image files to attach to the first message" type:"existingfile"`
	Message  string   `arg:"" optional:"" help:"Send a single message and exit"`
}

// Run executes the chat command
func (c *ChatCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	logger := createChatLogger(cli.LogLevel)

	application, err := app.New(cfg, config.StoragePaths{}, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()

	// Probe for on-device models in the background; the static catalog is
	// usable immediately.
	go func() {
		if _, err := application.Registry.Refresh(ctx); err != nil {
			logger.Debug("provider refresh failed", "error", err)
		}
	}()

	ctrl := application.NewController()
	if c.ChatID != "" {
		if err := ctrl.Open(ctx, c.ChatID); err != nil {
			return err
		}
		printTranscript(ctrl.Transcript())
	} else {
		provider := c.Provider
		if provider == "" {
			provider = cfg.Defaults.Provider
		}
		model := c.Model
		if model == "" {
			model = cfg.Defaults.Model
		}
		chat, err := ctrl.NewChat(ctx, provider, model)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("new conversation %s (%s/%s)", chat.ID, provider, model)))
	}

	attachments, err := loadAttachments(c.Attach)
	if err != nil {
		return err
	}

	if c.Message != "" {
		return sendAndPrint(ctx, ctrl, c.Message, attachments)
	}
	return c.interactiveLoop(ctx, ctrl, attachments)
}

func (c *ChatCmd) interactiveLoop(ctx context.Context, ctrl *controller.Controller, attachments []chatsdk.Attachment) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s: ", roleLabel(chatsdk.RoleUser))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		if err := sendAndPrint(ctx, ctrl, line, attachments); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			if perr, ok := chatsdk.AsProviderError(err); ok && perr.IsAuthError() {
				fmt.Println(systemStyle.Render("set an API key with: chatter secret set " + perr.Provider + " <key>"))
			}
		}
		// Attachments only ride on the first message.
		attachments = nil
	}
}

func sendAndPrint(ctx context.Context, ctrl *controller.Controller, text string, attachments []chatsdk.Attachment) error {
	fmt.Printf("%s: ", roleLabel(chatsdk.RoleAssistant))
	printed := 0
	err := ctrl.Send(ctx, text, attachments, func(full string) {
		// Each update is the full accumulated text; print only the
		// unseen suffix.
		if printed < len(full) {
			fmt.Print(full[printed:])
			printed = len(full)
		}
	})
	if err != nil {
		fmt.Println()
		return err
	}

	if printed == 0 {
		transcript := ctrl.Transcript()
		if len(transcript) > 0 {
			fmt.Print(renderContent(transcript[len(transcript)-1].Content))
		}
	}
	fmt.Println()
	return nil
}

func loadAttachments(paths []string) ([]chatsdk.Attachment, error) {
	var attachments []chatsdk.Attachment
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}
		attachments = append(attachments, chatsdk.Attachment{
			Data:   data,
			MIME:   mimeForExt(filepath.Ext(path)),
			Origin: path,
		})
	}
	return attachments, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
