package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cratetag/internal/config"
	"cratetag/internal/domain"
	"cratetag/internal/export"
	"cratetag/internal/label"
	"cratetag/internal/payload"
)

func generateCmd() *cobra.Command {
	var rf recordFlags
	var out string
	var printLabel bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate crate id, QR code, label and data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt runtime) error {
				raw, err := rf.resolve(cmd, time.Now().In(rt.cfg.Location()))
				if err != nil {
					return err
				}
				b, err := rt.assembler().Assemble(ctx, raw)
				if err != nil {
					return err
				}
				set, err := rt.exporter().Build(ctx, b)
				if err != nil {
					return err
				}
				dir := rt.cfg.Export.Dir
				if cmd.Flags().Changed("out") {
					dir = out
				}
				paths, err := export.WriteDir(dir, set)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(w, map[string]any{
						"id":           b.ID,
						"generated_at": b.GeneratedAt,
						"payload":      b.Payload,
						"digest":       payload.Digest(b.Payload),
						"label":        b.Label,
						"files":        paths,
						"degraded":     set.Degraded,
					})
				}
				fmt.Fprintf(w, "Crate ID generated: %s\n", b.ID)
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendHeader(table.Row{"Field", "Value"})
				for _, r := range b.Preview(rt.cfg.Preview.NotesWidth) {
					tw.AppendRow(table.Row{r.Name, r.Value})
				}
				tw.Render()
				if printLabel {
					fmt.Fprintln(w)
					fmt.Fprint(w, b.Label)
				}
				if set.Degraded {
					fmt.Fprintln(w, "warning: notes were left out of the QR code; see the label and data file")
				}
				for _, p := range paths {
					fmt.Fprintf(w, "wrote %s\n", p)
				}
				return nil
			})
		},
	}
	rf.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", ".", "directory for the exported files (overrides config)")
	cmd.Flags().BoolVar(&printLabel, "print-label", false, "also print the full label")
	return cmd
}

func validateCmd() *cobra.Command {
	var rf recordFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a crate record without generating anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt runtime) error {
				raw, err := rf.resolve(cmd, time.Now().In(rt.cfg.Location()))
				if err != nil {
					return err
				}
				rec, err := domain.Validate(raw)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(w, rec)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendHeader(table.Row{"Field", "Value"})
				tw.AppendRows([]table.Row{
					{"Farm Name", rec.FarmName},
					{"Farm Location", rec.FarmLocation},
					{"Variety", varietyCell(rec.Variety)},
					{"Weight (kg)", domain.FormatWeight(rec.WeightKg)},
					{"Quantity (pieces)", rec.QuantityPieces},
					{"Quality Grade", rec.QualityGrade.String()},
					{"Harvest Date", rec.HarvestDate.Format(domain.DateLayout)},
					{"Organic", rec.OrganicLabel()},
					{"Notes", label.Truncate(rec.Notes, rt.cfg.Preview.NotesWidth)},
				})
				tw.Render()
				return nil
			})
		},
	}
	rf.bind(cmd)
	return cmd
}

func varietyCell(v domain.Variety) string {
	if v.IsCustom() {
		return v.String() + " (custom)"
	}
	return v.String()
}

func decodeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Parse a canonical payload (e.g. <id>_Data.json or scanned QR text)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt runtime) error {
				var data []byte
				var err error
				if file == "-" {
					data, err = io.ReadAll(cmd.InOrStdin())
				} else {
					data, err = os.ReadFile(file)
				}
				if err != nil {
					return err
				}
				text := string(data)
				fields, err := payload.Parse(text)
				if err != nil {
					return err
				}
				if _, err := payload.Decode(text, rt.cfg.Location()); err != nil {
					return fmt.Errorf("payload parsed but does not describe a valid crate: %w", err)
				}
				w := cmd.OutOrStdout()
				if viper.GetBool("json") {
					return printJSON(w, fields.Map())
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendHeader(table.Row{"Key", "Value"})
				for _, f := range fields {
					tw.AppendRow(table.Row{f.Key, f.Value})
				}
				tw.Render()
				fmt.Fprintf(w, "sha256: %s\n", payload.Digest(text))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage crate.yml"}
	cfgCmd.AddCommand(configInitCmd())
	cfgCmd.AddCommand(configShowCmd())
	cfgCmd.AddCommand(configValidateCmd())
	return cfgCmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default crate.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if _, err := export.EnsureDir(viper.GetString("workspace")); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			out, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate crate.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}
}
