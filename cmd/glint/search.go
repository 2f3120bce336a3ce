package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cuemby/glint/pkg/query"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <collection>",
	Short: "Run a search against a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, store, err := openLocalManager(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		q, _ := cmd.Flags().GetString("q")
		queryBy, _ := cmd.Flags().GetString("query-by")
		filterBy, _ := cmd.Flags().GetString("filter-by")
		sortBy, _ := cmd.Flags().GetString("sort-by")
		facetBy, _ := cmd.Flags().GetString("facet-by")
		perPage, _ := cmd.Flags().GetInt("per-page")
		page, _ := cmd.Flags().GetInt("page")
		numTypos, _ := cmd.Flags().GetInt("num-typos")
		prefix, _ := cmd.Flags().GetBool("prefix")

		params := query.DefaultParams()
		params.Q = q
		if queryBy != "" {
			params.QueryBy = splitCSV(queryBy)
		}
		params.FilterBy = filterBy
		params.SortBy = sortBy
		if facetBy != "" {
			params.FacetBy = splitCSV(facetBy)
		}
		if perPage > 0 {
			params.PerPage = perPage
		}
		if page > 0 {
			params.Page = page
		}
		params.NumTypos = numTypos
		for range params.QueryBy {
			params.Prefix = append(params.Prefix, prefix)
		}

		result, err := manager.DoSearch(args[0], params, query.Params{})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	searchCmd.Flags().String("q", "*", "Query string ('*' matches every document)")
	searchCmd.Flags().String("query-by", "", "Comma-separated fields to search")
	searchCmd.Flags().String("filter-by", "", "filter_by expression")
	searchCmd.Flags().String("sort-by", "", "sort_by expression")
	searchCmd.Flags().String("facet-by", "", "Comma-separated facet fields")
	searchCmd.Flags().Int("per-page", 0, "Results per page (0 uses the default)")
	searchCmd.Flags().Int("page", 0, "Page number (0 uses the default)")
	searchCmd.Flags().Int("num-typos", 2, "Maximum typo tolerance")
	searchCmd.Flags().Bool("prefix", false, "Treat the last token of q as a prefix on every query_by field")
}
