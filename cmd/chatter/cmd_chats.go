package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/mkoskin/chatter/src/config"
	"github.com/mkoskin/chatter/src/imagestore"
	"github.com/mkoskin/chatter/src/storage"
)

// ChatsCmd manages saved conversations
type ChatsCmd struct {
	List   ChatsListCmd   `cmd:"" default:"1" help:"List conversations"`
	Show   ChatsShowCmd   `cmd:"" help:"Print a conversation transcript"`
	Delete ChatsDeleteCmd `cmd:"" help:"Delete a conversation and its messages"`
}

func openStore(dbPath string) (*storage.DB, error) {
	if dbPath == "" {
		dbPath = config.GetDefaultStoragePaths().DatabasePath
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	return db, nil
}

// ChatsListCmd lists conversations, most recently updated first
type ChatsListCmd struct {
	DBPath string `help:"Database path (defaults to config)"`
}

// Run executes the chats list command
func (c *ChatsListCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openStore(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	chats, err := storage.ListChats(context.Background(), db.DB())
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODEL\tUPDATED")
	for _, chat := range chats {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\n",
			chat.ID, chat.Title, chat.Provider, chat.Model,
			chat.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// ChatsShowCmd prints a conversation transcript
type ChatsShowCmd struct {
	ChatID string `arg:"" help:"Conversation id"`
	DBPath string `help:"Database path (defaults to config)"`
}

// Run executes the chats show command
func (c *ChatsShowCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openStore(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	chat, err := storage.GetChatByID(context.Background(), db.DB(), c.ChatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("chat %q not found", c.ChatID)
	}
	messages, err := storage.GetMessagesByChatID(context.Background(), db.DB(), c.ChatID)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(chat.Title))
	printTranscript(messages)
	return nil
}

// ChatsDeleteCmd deletes a conversation
type ChatsDeleteCmd struct {
	ChatID string `arg:"" help:"Conversation id"`
	DBPath string `help:"Database path (defaults to config)"`
}

// Run executes the chats delete command
func (c *ChatsDeleteCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openStore(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	logger := createCLILogger(cli.LogLevel)

	// Snapshot the transcript before the cascade delete so generated image
	// files can be cleaned up afterwards. Cleanup is best-effort; a failed
	// read never blocks the delete.
	messages, err := storage.GetMessagesByChatID(context.Background(), db.DB(), c.ChatID)
	if err != nil {
		logger.Warn("failed to read messages before delete, skipping image cleanup", "error", err)
		messages = nil
	}

	if err := storage.DeleteChat(context.Background(), db.DB(), c.ChatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if len(messages) > 0 {
		paths := config.GetDefaultStoragePaths()
		saver := imagestore.NewSaver(afero.NewOsFs(), paths.ImagesPrimary, paths.ImagesFallback, logger)
		contents := make([]string, 0, len(messages))
		for _, m := range messages {
			contents = append(contents, m.Content)
		}
		saver.Cleanup(contents)
	}

	fmt.Printf("Deleted %s\n", c.ChatID)
	return nil
}
