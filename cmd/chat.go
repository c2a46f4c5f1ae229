package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"document-qa/internal/helper"
	"document-qa/internal/session"
	"document-qa/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat FILE...",
	Short: "Process documents and ask questions about them in the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(args)
	},
}

func runChat(paths []string) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	uploads, err := readUploads(paths)
	if err != nil {
		return err
	}
	pipeline, err := session.NewPipeline(cfg, nil)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	sess := session.New(id, pipeline)
	fmt.Fprintln(os.Stderr, "Processing...")
	sum, err := sess.Process(ctx, uploads)
	if err != nil {
		return err
	}

	// The chat screen owns the terminal from here on.
	zerolog.SetGlobalLevel(zerolog.Disabled)
	summary := fmt.Sprintf("%d document(s), %d chunk(s)", sum.Documents, sum.Chunks)
	_, err = tea.NewProgram(tui.New(ctx, sess, summary), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
