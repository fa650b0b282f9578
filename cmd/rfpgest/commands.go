package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/dgallion1/rfpgest/internal/parser"
	"github.com/dgallion1/rfpgest/internal/render"
	"github.com/dgallion1/rfpgest/internal/tui"
)

func (a *app) extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the structured sections of a document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.extractFile(cmd, args[0])
			if err != nil {
				return err
			}
			out := map[string]any{"title": res.Title, "structured": res.Structured}
			if withTree, _ := cmd.Flags().GetBool("tree"); withTree {
				out["tree"] = doctree.BuildTree(res.Structured)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Requirement config JSON file")
	cmd.Flags().Bool("tree", false, "Include the section tree")
	return cmd
}

func (a *app) treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print a document's heading outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.extractFile(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), tui.RenderTree(doctree.BuildTree(res.Structured), nil))
			return err
		},
	}
	cmd.Flags().StringP("config", "c", "", "Requirement config JSON file")
	return cmd
}

func (a *app) mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <file>",
		Short: "Interactively map sections to categories and print import rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.extractFile(cmd, args[0])
			if err != nil {
				return err
			}

			var existing []doctree.ExistingCategory
			if path, _ := cmd.Flags().GetString("categories"); path != "" {
				if err := readJSONFile(path, &existing); err != nil {
					return err
				}
			}

			coder := &doctree.CodeSuggester{StopWords: doctree.DefaultStopWords}
			m, err := tui.RunMapper(doctree.BuildTree(res.Structured), existing, coder)
			if err != nil {
				return err
			}
			if !m.Accepted() {
				a.log.Info("mapping cancelled")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), m.Tree().ImportRows(existing, a.cfg.FallbackCategory))
		},
	}
	cmd.Flags().StringP("config", "c", "", "Requirement config JSON file")
	cmd.Flags().String("categories", "", "JSON file of existing categories [{id, code, title}]")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.md>",
		Short: "Convert Markdown to a .docx document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			title, _ := cmd.Flags().GetString("title")
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = render.Filename(strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))
			}

			var buf bytes.Buffer
			if err := render.WriteDOCX(&buf, title, render.Render(string(md))); err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.log.Info("exported", "input", args[0], "output", out, "bytes", buf.Len())
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output .docx path")
	cmd.Flags().StringP("title", "t", "", "Document title")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <preset.json>",
		Short: "Check a requirement config for problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg extract.RequirementConfig
			if err := readJSONFile(args[0], &cfg); err != nil {
				return err
			}
			issues := extract.Validate(&cfg)
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			for _, is := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), is.String())
			}
			return fmt.Errorf("%d issue(s) in %s", len(issues), args[0])
		},
	}
}

func (a *app) extractFile(cmd *cobra.Command, path string) (*doctree.Result, error) {
	var cfg *extract.RequirementConfig
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		cfg = &extract.RequirementConfig{}
		if err := readJSONFile(cfgPath, cfg); err != nil {
			return nil, err
		}
		for _, is := range extract.Validate(cfg) {
			a.log.Warn("requirement config issue", "field", is.Field, "message", is.Message)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	log := a.log.With("file", path)
	return parser.Extract(f, filepath.Base(path), cfg,
		parser.Options{PDFFallbackPdftotext: a.cfg.PDFTotext},
		extract.Options{MatchTimeout: a.cfg.RegexTimeout, Logger: log},
	)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
