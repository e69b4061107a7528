package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/portfolio/internal/domain"
	"github.com/pbaille/portfolio/internal/fetcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage the notes shown on the site",
	}
	cmd.AddCommand(notesAddCmd())
	cmd.AddCommand(notesListCmd())
	return cmd
}

func notesAddCmd() *cobra.Command {
	var (
		note    domain.Note
		noFetch bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(note.Subject) == "" || strings.TrimSpace(note.Link) == "" {
				return errors.New("--subject and --link are required")
			}

			// Fill in whatever the link can tell us
			if !noFetch && (note.Title == "" || note.SizeMB == 0) {
				meta, err := fetcher.New(30*time.Second).Inspect(cmd.Context(), note.Link)
				if err != nil {
					logger.Warn("could not inspect link", zap.String("link", note.Link), zap.Error(err))
				} else {
					if note.Title == "" {
						note.Title = meta.Title
					}
					if note.SizeMB == 0 {
						note.SizeMB = meta.SizeMB
					}
				}
			}
			if note.Title == "" {
				return errors.New("--title is required when it cannot be read from the link")
			}

			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.AddNote(cmd.Context(), &note); err != nil {
				return err
			}

			fmt.Printf("Added note: %s\n", note.ID[:8])
			fmt.Printf("%s / %s (%.2f MB) [%s]\n", note.Subject, note.Title, note.SizeMB, s.Mode())
			return nil
		},
	}

	cmd.Flags().StringVar(&note.Subject, "subject", "", "subject the note belongs to")
	cmd.Flags().StringVar(&note.Title, "title", "", "note title (read from the link when empty)")
	cmd.Flags().StringVar(&note.Link, "link", "", "download link")
	cmd.Flags().Float64Var(&note.SizeMB, "size", 0, "size in MB (measured from the link when 0)")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "do not inspect the link")
	return cmd
}

func notesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			notes, err := s.ListNotes(cmd.Context())
			if err != nil {
				return err
			}

			if len(notes) == 0 {
				fmt.Println("No notes yet. Use 'portfolio notes add' to create one.")
				return nil
			}

			for _, n := range notes {
				fmt.Printf("%s  %-12s %s (%.2f MB)\n", n.CreatedAt.Format("2006-01-02"), truncate(n.Subject, 12), n.Title, n.SizeMB)
			}
			return nil
		},
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
