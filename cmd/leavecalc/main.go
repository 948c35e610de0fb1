package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/maternity-engine/api"
	"github.com/warp/maternity-engine/factory"
	"github.com/warp/maternity-engine/generic"
	"github.com/warp/maternity-engine/generic/store"
	"github.com/warp/maternity-engine/maternity"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "leavecalc",
		Short:        "Maternity leave and allowance calculator",
		Long:         "Calculates maternity leave days, dates and allowance for a case under a region policy",
		SilenceUsage: true,
	}
	root.AddCommand(calculateCmd(), validateCmd(), presetsCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "leavecalc %s (commit %s)\n", version, commit)
		},
	}
}

// =============================================================================
// CALCULATE
// =============================================================================

func calculateCmd() *cobra.Command {
	var policiesFile, calendarFile, format string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "calculate [case-file]",
		Short: "Calculate leave and allowance for a YAML case file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read case file: %w", err)
			}
			facts, err := factory.ParseCaseYAML(data)
			if err != nil {
				return err
			}

			cel, err := maternity.NewCELConditions()
			if err != nil {
				return err
			}
			mem, err := loadStore(cmd.Context(), &factory.PolicyFactory{CEL: cel}, policiesFile, calendarFile)
			if err != nil {
				return err
			}

			svc := maternity.NewService(mem, mem, maternity.NewEngine(maternity.Conditions{CEL: cel}), logger)
			res, err := svc.Calculate(cmd.Context(), facts)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(api.ToCalculationDTO(res))
			case "text", "":
				return printResult(cmd.OutOrStdout(), res)
			default:
				return fmt.Errorf("unknown format %q (use text or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&policiesFile, "policies", "", "YAML policy file (default: built-in presets)")
	cmd.Flags().StringVar(&calendarFile, "calendar", "", "YAML special-date file (default: built-in CN schedule)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log lookups to stderr")
	return cmd
}

func loadStore(ctx context.Context, f *factory.PolicyFactory, policiesFile, calendarFile string) (*store.Memory, error) {
	mem := store.NewMemory()

	policies := maternity.Presets()
	if policiesFile != "" {
		var err error
		if policies, err = f.LoadPoliciesFile(policiesFile); err != nil {
			return nil, err
		}
	}
	for _, p := range policies {
		if err := mem.SavePolicy(ctx, p); err != nil {
			return nil, fmt.Errorf("policy %s: %w", p.Region, err)
		}
	}

	dates, err := factory.DefaultSpecialDates()
	if calendarFile != "" {
		dates, err = factory.LoadSpecialDatesFile(calendarFile)
	}
	if err != nil {
		return nil, err
	}
	if err := mem.SaveSpecialDates(ctx, dates); err != nil {
		return nil, err
	}
	return mem, nil
}

func printResult(out io.Writer, res *maternity.Result) error {
	fmt.Fprintf(out, "Policy:     %s (version %d, effective %s)\n", res.PolicyName, res.PolicyVersion, res.PolicyEffective)
	fmt.Fprintf(out, "Case:       %s\n", res.Classification)
	fmt.Fprintf(out, "Leave:      %d days, %s\n", res.TotalDays, res.Counting)
	fmt.Fprintf(out, "Dates:      %s to %s\n", res.Range.Start, res.Range.End)
	for _, d := range res.Delayed {
		fmt.Fprintf(out, "            moved past %s (%s)\n", d.Date, d.Label)
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tKIND\tDAYS\tJUSTIFICATION")
	for _, c := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%s\n", c.RuleID, c.Kind, c.Days, c.Justification)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	switch {
	case res.Allowance != nil:
		a := res.Allowance
		fmt.Fprintf(out, "Allowance:    %s\n", generic.FormatMoney(a.Allowance))
		if a.Compensation != nil {
			fmt.Fprintf(out, "Compensation: %s (%s)\n", generic.FormatMoney(*a.Compensation), a.CompensationMode)
		} else {
			fmt.Fprintf(out, "Compensation: not determined (%s)\n", a.CompensationMode)
		}
		fmt.Fprintf(out, "Total payout: %s\n", generic.FormatMoney(a.TotalPayout))
	case res.AllowanceErr != nil:
		fmt.Fprintf(out, "Allowance:    not computed: %v\n", res.AllowanceErr)
	default:
		fmt.Fprintln(out, "Allowance:    not requested")
	}

	for _, a := range res.Advisories {
		fmt.Fprintf(out, "Note: %s\n", a)
	}
	return nil
}

// =============================================================================
// VALIDATE / PRESETS
// =============================================================================

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [policy-file]",
		Short: "Check a YAML policy file without calculating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cel, err := maternity.NewCELConditions()
			if err != nil {
				return err
			}
			f := &factory.PolicyFactory{CEL: cel}
			policies, err := f.LoadPoliciesFile(args[0])
			if err != nil {
				return err
			}
			// Duplicate versions are caught the same way the server would.
			mem := store.NewMemory()
			for _, p := range policies {
				if err := mem.SavePolicy(cmd.Context(), p); err != nil {
					return fmt.Errorf("%s effective %s: %w", p.Region, p.EffectiveDate, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok  %s version %d effective %s (%d rules)\n",
					p.Region, p.Version, p.EffectiveDate, len(p.Rules()))
			}
			return nil
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Print the built-in policies as a YAML policy file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := factory.NewPolicyFactory()
			var file factory.PolicyFileYAML
			for _, p := range maternity.Presets() {
				file.Policies = append(file.Policies, f.ToJSON(p))
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(file)
		},
	}
}
