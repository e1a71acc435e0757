package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrdoc/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "List error codes or explain one",
		Long: `List every error code ssrdoc reports, or print the full
explanation of a single code.

Examples:
  ssrdoc errors
  ssrdoc errors E021`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return explainError(cmd.OutOrStdout(), args[0])
			}
			listErrors(cmd.OutOrStdout())
			return nil
		},
	}
}

func listErrors(w io.Writer) {
	codes := errors.GetAllCodes()
	sort.Strings(codes)
	for _, code := range codes {
		e := errors.New(code)
		fmt.Fprintf(w, "  %-14s %s\n", e.Category, e.FormatCompact())
	}
}

func explainError(w io.Writer, code string) error {
	if _, ok := errors.GetTemplate(code); !ok {
		return errors.New("E050").
			WithDetail(fmt.Sprintf("Unknown error code %q.", code)).
			WithSuggestion("Run 'ssrdoc errors' to list the known codes")
	}
	_, err := fmt.Fprint(w, errors.New(code).Format())
	return err
}
