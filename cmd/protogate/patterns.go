package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drblury/protogate/modules"
	"github.com/drblury/protogate/pattern"
)

type patternsFlags struct {
	transport string
	module    string
}

func newPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the operation tables of the catalog",
	}
	cmd.AddCommand(newPatternsListCmd(), newPatternsCheckCmd())
	return cmd
}

func (f *patternsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.transport, "transport", "t", "", "only this transport kind, e.g. tcp or kafka (default every kind)")
	cmd.Flags().StringVarP(&f.module, "module", "m", "", "only this module")
}

// selection resolves the flags to the kinds and modules to inspect.
func (f *patternsFlags) selection() ([]pattern.Kind, []modules.Module, error) {
	var kinds []pattern.Kind
	if f.transport != "" {
		kind, err := pattern.ParseKind(f.transport)
		if err != nil {
			return nil, nil, err
		}
		kinds = []pattern.Kind{kind}
	}
	list := catalog()
	if f.module != "" {
		m, ok := modules.Find(list, f.module)
		if !ok {
			return nil, nil, fmt.Errorf("unknown module %q", f.module)
		}
		list = []modules.Module{m}
	}
	return kinds, list, nil
}

func newPatternsListCmd() *cobra.Command {
	var flags patternsFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the descriptor of every operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, list, err := flags.selection()
			if err != nil {
				return err
			}
			return listPatterns(cmd.OutOrStdout(), list, kinds)
		},
	}
	flags.bind(cmd)
	return cmd
}

func listPatterns(out io.Writer, list []modules.Module, kinds []pattern.Kind) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tOPERATION\tKIND\tPATTERN")
	for _, m := range list {
		reg, err := m.Registry(kinds...)
		if err != nil {
			return err
		}
		for _, kind := range reg.Kinds() {
			for _, op := range reg.Operations() {
				desc, err := reg.Resolve(op, kind)
				address := desc.Pattern()
				if err != nil {
					address = "unsupported"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, op, kind, address)
			}
		}
	}
	return w.Flush()
}

func newPatternsCheckCmd() *cobra.Command {
	var flags patternsFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report operations a transport cannot reach",
		Long: "Lists every operation declared unsupported or missing on a transport kind, and every routed " +
			"operation without a descriptor. Fails when an operation is missing without being declared.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, list, err := flags.selection()
			if err != nil {
				return err
			}
			return checkPatterns(cmd.OutOrStdout(), list, kinds)
		},
	}
	flags.bind(cmd)
	return cmd
}

type finding struct {
	module, operation, kind, status string
}

func checkPatterns(out io.Writer, list []modules.Module, kinds []pattern.Kind) error {
	var (
		findings []finding
		missing  int
	)
	for _, m := range list {
		reg, err := m.Registry(kinds...)
		if err != nil {
			return err
		}
		for _, gap := range reg.Gaps() {
			status := "declared unsupported"
			if !gap.Declared {
				status = "missing"
				missing++
			}
			findings = append(findings, finding{m.Name, gap.Operation, string(gap.Kind), status})
		}
		for _, op := range m.Undeclared() {
			findings = append(findings, finding{m.Name, op, "*", "no descriptor"})
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].module != findings[j].module {
			return findings[i].module < findings[j].module
		}
		return findings[i].operation < findings[j].operation
	})

	if len(findings) == 0 {
		fmt.Fprintln(out, "every operation is reachable")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tOPERATION\tKIND\tSTATUS")
	for _, f := range findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.module, f.operation, f.kind, f.status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%d operation(s) have no descriptor and are not declared unsupported", missing)
	}
	return nil
}
