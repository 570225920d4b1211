package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/slayer-suite/internal/ocrimport"
)

type importOCROptions struct {
	typeCode  string
	page      int
	field     string
	titleCase bool
	out       string
	dedupe    ocrimport.DedupeOptions
	rooms     ocrimport.RoomOptions
}

func importOCRCmd() *cobra.Command {
	var opts importOCROptions
	cmd := &cobra.Command{
		Use:   "import-ocr SCAN",
		Short: "Place signs for the room names found in an OCR scan",
		Long: "Reads an OCR scan result, collapses repeated passes, joins split labels, " +
			"extracts room names and adds one sign per room to the mapping editor. " +
			"The project is saved to --out (or the default path).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportOCR(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.typeCode, "type", "", "sign type code for the placed signs (required)")
	cmd.Flags().IntVar(&opts.page, "page", 1, "plan page the scan belongs to")
	cmd.Flags().StringVar(&opts.field, "field", "", "text field receiving the room name (default message1)")
	cmd.Flags().BoolVar(&opts.titleCase, "title-case", false, "rewrite BOILER RM as Boiler Rm")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output project file")
	cmd.Flags().Float64Var(&opts.dedupe.PositionThreshold, "position-threshold", ocrimport.DefaultPositionThreshold, "max distance between duplicate readings")
	cmd.Flags().Float64Var(&opts.dedupe.SimilarityThreshold, "similarity", ocrimport.DefaultSimilarityThreshold, "min text similarity between duplicate readings")
	cmd.Flags().Float64Var(&opts.rooms.MinConfidence, "min-confidence", ocrimport.DefaultMinConfidence, "drop room names below this confidence")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runImportOCR(cmd *cobra.Command, scanPath string, opts importOCROptions) error {
	scan, err := ocrimport.LoadScan(scanPath)
	if err != nil {
		return err
	}
	texts := ocrimport.Deduplicate(scan.Texts, opts.dedupe)
	texts = ocrimport.MergeSplit(texts, 0)
	rooms := ocrimport.ExtractRooms(texts, opts.rooms)
	signs, err := ocrimport.ToSignInstances(rooms, ocrimport.SignOptions{
		TypeCode:  opts.typeCode,
		Page:      opts.page,
		TitleCase: opts.titleCase,
		Field:     opts.field,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := openSession(ctx, projectDir)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.openDefaultProject(ctx); err != nil {
		return err
	}
	if _, ok := sess.suite.Catalog.Get(opts.typeCode); !ok {
		sess.log.Warnf("import-ocr: sign type %s is not in the catalog", opts.typeCode)
	}
	for _, sign := range signs {
		sess.builtins.Mapping.AddSign(sign)
	}
	sess.suite.Logbook.Info("mapping", "imported %d sign(s) from %s", len(signs), scanPath)

	path := opts.out
	if path == "" {
		path = sess.suite.DefaultPath()
	}
	if _, err := sess.suite.Save(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d reading(s) → %d room(s) → %s\n", len(scan.Texts), len(signs), path)
	for _, room := range rooms {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s (%.0f, %.0f) %.0f%%\n", room.Name, room.X, room.Y, room.Confidence)
	}
	return nil
}
