package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/gogpu/vrt"
)

func newBaselinesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baselines",
		Short: "Inspect and delete recorded baselines",
	}
	cmd.AddCommand(newBaselinesListCmd(g), newBaselinesClearCmd(g))
	return cmd
}

func newBaselinesListCmd(g *globalOptions) *cobra.Command {
	var keys bool
	cmd := &cobra.Command{
		Use:   "list [PREFIX]",
		Short: "List recorded test identities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			all, err := st.List(contextOf(cmd), prefix)
			if err != nil {
				return fmt.Errorf("failed to list baselines: %w", err)
			}

			out := cmd.OutOrStdout()
			if keys {
				for _, k := range all {
					fmt.Fprintln(out, k)
				}
				return nil
			}
			if len(all) == 0 {
				fmt.Fprintln(out, "No baselines found.")
				return nil
			}
			printIdentities(out, all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keys, "keys", false, "print raw storage keys")
	return cmd
}

// identityRow summarizes the keys stored for one identity.
type identityRow struct {
	identity string
	images   int
	metadata bool
}

// groupKeys groups sorted storage keys by test identity.
func groupKeys(keys []string) []identityRow {
	var rows []identityRow
	index := make(map[string]int)
	for _, k := range keys {
		i := strings.LastIndex(k, vrt.Separator)
		if i < 0 {
			continue
		}
		id, file := k[:i], k[i+len(vrt.Separator):]
		n, ok := index[id]
		if !ok {
			n = len(rows)
			index[id] = n
			rows = append(rows, identityRow{identity: id})
		}
		switch {
		case file == vrt.MetadataFile:
			rows[n].metadata = true
		case strings.HasSuffix(file, ".png"):
			rows[n].images++
		}
	}
	return rows
}

func printIdentities(w io.Writer, keys []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Identity", "Screenshots", "Metadata"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Screenshots", Align: text.AlignRight},
	})

	rows := groupKeys(keys)
	for _, r := range rows {
		meta := "yes"
		if !r.metadata {
			meta = "missing"
		}
		t.AppendRow(table.Row{r.identity, r.images, meta})
	}
	t.AppendFooter(table.Row{"Total", len(rows), ""})
	t.Render()
}

func newBaselinesClearCmd(g *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [PREFIX...]",
		Short: "Delete baselines so they are recorded again",
		Long: `Delete every baseline whose key starts with one of the prefixes. A prefix
is usually an identity such as "home/menu open". Use --all to delete
everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("give at least one prefix, or --all")
			}
			if all {
				args = []string{""}
			}

			cfg, err := g.load()
			if err != nil {
				return err
			}
			st, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			total := 0
			for _, prefix := range args {
				n, err := st.Delete(contextOf(cmd), prefix)
				if err != nil {
					return fmt.Errorf("failed to delete %q: %w", prefix, err)
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d file(s).\n", total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete all baselines")
	return cmd
}
