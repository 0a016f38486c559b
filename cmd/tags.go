/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Inspect tag normalization and the tag cache",
}

var tagsNormalizeCmd = &cobra.Command{
	Use:   "normalize <tag>...",
	Short: "Show how tags normalize",
	Long: `Show the normalized form of each tag and the cached tag it would merge
into. Nothing is written to the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			type row struct {
				Tag        string `json:"tag"`
				Normalized string `json:"normalized"`
				Cached     string `json:"cached,omitempty"`
			}
			rows := make([]row, 0, len(args))
			for _, t := range args {
				n := a.Tags.Normalize(t)
				r := row{Tag: t, Normalized: n}
				if e, ok := a.Tags.Get(n); ok {
					r.Cached = e.Normalized
				} else {
					for _, e := range a.Tags.Top(0) {
						if a.Tags.IsSimilar(n, e.Normalized) {
							r.Cached = e.Normalized
							break
						}
					}
				}
				rows = append(rows, r)
			}
			return emit(rows, func(p *ui.Printer) {
				t := &ui.Table{Headers: []string{"Tag", "Normalized", "Cached as"}}
				for _, r := range rows {
					t.Rows = append(t.Rows, []string{r.Tag, r.Normalized, r.Cached})
				}
				p.Table(t)
			})
		})
	},
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached tags by usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		return withApp(cmd.Context(), func(a *app.App) error {
			entries := a.Tags.Top(top)
			return emit(entries, func(p *ui.Printer) {
				if len(entries) == 0 {
					p.Println(p.Style(ui.StyleSubtle, "Tag cache is empty."))
					return
				}
				t := &ui.Table{Headers: []string{"Tag", "Count", "Original", "Domains"}, MaxWidth: 40}
				for _, e := range entries {
					t.Rows = append(t.Rows, []string{e.Normalized, fmt.Sprint(e.Count), e.Original, strings.Join(e.Domains, ",")})
				}
				p.Table(t)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.AddCommand(tagsNormalizeCmd, tagsListCmd)
	tagsListCmd.Flags().Int("top", 20, "number of tags to show (0 = all)")
}
