package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/meikuraledutech/canvas"
	"github.com/spf13/cobra"
)

func pushCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file>",
		Short: "Validate a document and store it in postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := readDocument(args[0])
			if err != nil {
				return err
			}
			data, err := canvas.EncodeDocument(doc.Workspaces)
			if err != nil {
				return err
			}

			store, key, closeDB, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.Save(cmd.Context(), key, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", good.Sprint("pushed"), key,
				subtle.Sprintf("(%d workspaces)", len(doc.Workspaces)))
			return nil
		},
	}
}

func pullCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the stored document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, key, closeDB, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			data, err := store.Load(cmd.Context(), key)
			if errors.Is(err, canvas.ErrNotFound) {
				return fmt.Errorf("nothing stored under %q", key)
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, closeDB, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			docs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				subtle.Fprintln(out, "  no documents")
				return nil
			}
			subtle.Fprintf(out, "  %-24s %8s %10s  %s\n", "KEY", "REV", "BYTES", "UPDATED")
			subtle.Fprintf(out, "  %s\n", strings.Repeat("─", 66))
			for _, d := range docs {
				fmt.Fprintf(out, "  %-24s %8d %10d  %s\n", d.Key, d.Revision, d.Bytes,
					d.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func removeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, closeDB, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", good.Sprint("removed"), args[0])
			return nil
		},
	}
}

func schemaCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the postgres schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create the document table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, _, closeDB, err := opts.connect(cmd.Context())
				if err != nil {
					return err
				}
				defer closeDB()
				if err := store.CreateSchema(cmd.Context()); err != nil {
					return err
				}
				good.Fprintln(cmd.OutOrStdout(), "schema created")
				return nil
			},
		},
		&cobra.Command{
			Use:   "drop",
			Short: "Drop the document table and everything in it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, _, closeDB, err := opts.connect(cmd.Context())
				if err != nil {
					return err
				}
				defer closeDB()
				if err := store.DropSchema(cmd.Context()); err != nil {
					return err
				}
				warn.Fprintln(cmd.OutOrStdout(), "schema dropped")
				return nil
			},
		},
	)
	return cmd
}
