package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <schema.json>",
	Short: "Create a collection from a JSON schema file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read schema file: %w", err)
		}
		manager, store, err := openLocalManager(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		c, err := manager.CreateCollectionFromJSON(raw)
		if err != nil {
			return err
		}
		fmt.Printf("created collection %q (id=%d)\n", c.Name, c.ID)
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, store, err := openLocalManager(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, name := range manager.ListCollections() {
			fmt.Println(name)
		}
		return nil
	},
}

var collectionGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a collection's schema and document count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, store, err := openLocalManager(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		c, err := manager.GetCollection(args[0])
		if err != nil {
			return err
		}
		out := struct {
			Name                string `json:"name"`
			NumDocuments        int    `json:"num_documents"`
			DefaultSortingField string `json:"default_sorting_field"`
			Fields              any    `json:"fields"`
		}{
			Name:                c.Name,
			NumDocuments:        c.DocCount(),
			DefaultSortingField: c.Schema.DefaultSortingField,
			Fields:              c.Schema.Fields,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var collectionDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Drop a collection and every document it owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, store, err := openLocalManager(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := manager.DropCollection(args[0]); err != nil {
			return err
		}
		fmt.Printf("dropped collection %q\n", args[0])
		return nil
	},
}

func init() {
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionGetCmd)
	collectionCmd.AddCommand(collectionDropCmd)
}
