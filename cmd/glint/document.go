package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Create, update, fetch, and delete documents",
}

func writeDocCmd(use, short string, op collection.WriteOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <collection> <document.json>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read document file: %w", err)
			}
			var doc map[string]any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse document: %w", err)
			}

			manager, store, err := openLocalManager(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := manager.GetCollection(args[0])
			if err != nil {
				return err
			}
			seqID, err := c.Add(doc, op)
			if err != nil {
				return err
			}
			fmt.Printf("ok (seq_id=%d)\n", seqID)
			return nil
		},
	}
}

var documentGetCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Fetch a document by id",
	Args:  cobra.ExactArgs(2),
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
		doc, err := c.Get(args[1])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Delete a document by id",
	Args:  cobra.ExactArgs(2),
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
		if _, err := c.Add(map[string]any{"id": args[1]}, collection.OpDelete); err != nil {
			return err
		}
		fmt.Printf("deleted %q\n", args[1])
		return nil
	},
}

func init() {
	documentCmd.AddCommand(writeDocCmd("create", "Create a document, rejecting an existing id", collection.OpCreate))
	documentCmd.AddCommand(writeDocCmd("upsert", "Replace a document unconditionally", collection.OpUpsert))
	documentCmd.AddCommand(writeDocCmd("update", "Merge fields into an existing document", collection.OpUpdate))
	documentCmd.AddCommand(writeDocCmd("emplace", "Merge fields, creating the document if absent", collection.OpEmplace))
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
}
