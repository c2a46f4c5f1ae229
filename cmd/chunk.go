package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/chunker"
	"document-qa/internal/helper"
	"document-qa/internal/parser"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk FILE...",
	Short: "Print the chunks the documents would be indexed as, without embedding them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		uploads, err := readUploads(args)
		if err != nil {
			return err
		}
		text, err := parser.NewIngestor(cfg.Ingest).Ingest(cmd.Context(), uploads)
		if err != nil {
			return err
		}
		ch, err := chunker.New(cfg.Chunking)
		if err != nil {
			return err
		}
		chunks, err := ch.Split(text)
		if err != nil {
			return err
		}
		log.Info().Int("documents", len(uploads)).Int("chunks", len(chunks)).Msg("Chunked documents")
		return helper.PrettyPrint(cmd.OutOrStdout(), chunks)
	},
}
