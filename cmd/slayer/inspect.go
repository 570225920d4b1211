package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/slayer-suite/internal/config"
	"github.com/kingrea/slayer-suite/internal/persistence"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Summarise a saved project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client := persistence.NewClient(config.DefaultCompressThreshold)
			defer client.Close()
			doc, err := client.Deserialize(cmd.Context(), data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Project: %s\n", doc.ProjectName)
			fmt.Fprintf(w, "Type:    %s v%s\n", doc.Type, doc.Version)
			if !doc.Saved.IsZero() {
				fmt.Fprintf(w, "Saved:   %s\n", doc.Saved.Format("2006-01-02 15:04:05"))
			}
			if persistence.IsCompressed(data) {
				fmt.Fprintf(w, "Stored:  compressed, %d bytes\n", len(data))
			}
			for _, name := range doc.AppNames() {
				entry := doc.Apps[name]
				marker := " "
				if entry.Active {
					marker = "*"
				}
				line := fmt.Sprintf("%s %-10s v%-8s %s", marker, name, entry.Version, describeData(entry.Data))
				if entry.Error != "" {
					line += " · error: " + entry.Error
				}
				fmt.Fprintln(w, strings.TrimRight(line, " "))
			}
			return nil
		},
	}
}

// describeData lists top-level keys with their collection sizes.
func describeData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := data[key].(type) {
		case []any:
			parts = append(parts, fmt.Sprintf("%s=%d", key, len(v)))
		case map[string]any:
			parts = append(parts, fmt.Sprintf("%s=%d", key, len(v)))
		default:
			parts = append(parts, key)
		}
	}
	return strings.Join(parts, " ")
}
