package main

import (
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/containment"
	"github.com/spf13/cobra"
)

func readDocument(path string) (*canvas.Document, []byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, err
	}
	doc, err := canvas.DecodeDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize the workspaces in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, data, err := readDocument(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			version := doc.Version
			if version == "" {
				version = "legacy"
			}
			fmt.Fprintf(out, "%s %s\n", brand.Sprint(args[0]), subtle.Sprintf("(version %s, %d bytes)", version, len(data)))

			engine := containment.New(containment.DefaultOptions(), nil)
			for _, ws := range doc.Workspaces {
				containers, groups := 0, make(map[string]bool)
				for i := range ws.Nodes {
					if ws.Nodes[i].IsContainer() {
						containers++
					}
					if g := ws.Nodes[i].Data.GroupID; g != "" {
						groups[g] = true
					}
				}
				stale := 0
				for _, r := range engine.Recompute(ws.Nodes, nil) {
					if r.Changed() {
						stale++
					}
				}

				lock := ""
				if ws.Locked {
					lock = warn.Sprint(" locked")
				}
				fmt.Fprintf(out, "  %s %s%s\n", ws.Name, subtle.Sprint(ws.ID), lock)
				fmt.Fprintf(out, "    nodes: %d  edges: %d  containers: %d  groups: %d\n",
					len(ws.Nodes), len(ws.Edges), containers, len(groups))
				if stale > 0 {
					fmt.Fprintf(out, "    %s\n", warn.Sprintf("%d container(s) out of date", stale))
				}
			}
			if doc.Dropped > 0 {
				fmt.Fprintf(out, "%s\n", warn.Sprintf("%d corrupt entries would be dropped on load", doc.Dropped))
			} else {
				fmt.Fprintf(out, "%s\n", good.Sprint("document is clean"))
			}
			return nil
		},
	}
}

func normalizeCmd() *cobra.Command {
	var (
		output    string
		recompute bool
	)
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Rewrite a document in the current shape with corrupt entries removed",
		Long: "Reads a legacy or current document, applies load-time repairs and writes it\n" +
			"back in the multi-workspace shape. Use - to read from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if recompute {
				engine := containment.New(containment.DefaultOptions(), nil)
				for i := range doc.Workspaces {
					nodes := doc.Workspaces[i].Nodes
					containment.Apply(nodes, engine.Recompute(nodes, nil))
				}
			}
			data, err := canvas.EncodeDocument(doc.Workspaces)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s\n", good.Sprint("wrote"), output,
				subtle.Sprintf("(%d dropped)", doc.Dropped))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&recompute, "recompute", false, "Recompute container membership and sizes")
	return cmd
}
