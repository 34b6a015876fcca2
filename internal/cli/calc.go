package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/acl-rts-tracker/internal/config"
	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/service"
)

// LSICmd returns the lsi command
func LSICmd() *cobra.Command {
	var (
		uninvolved    []float64
		involved      []float64
		lowerIsBetter bool
	)

	cmd := &cobra.Command{
		Use:   "lsi",
		Short: "Compute a limb symmetry index from trials of each limb",
		Example: `  rtsctl lsi --uninvolved 140,142 --involved 120,118
  rtsctl lsi --uninvolved 2.0 --involved 2.2 --lower-is-better`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := domain.HigherIsBetter
			if lowerIsBetter {
				dir = domain.LowerIsBetter
			}
			res, err := service.ComputeLSI(domain.RawTrialSet{Uninvolved: uninvolved, Involved: involved}, dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uninvolved: %s\n", formatValue(res.Uninvolved))
			fmt.Fprintf(out, "Involved:   %s\n", formatValue(res.Involved))
			fmt.Fprintf(out, "LSI:        %s%%\n", formatValue(res.LSI))
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&uninvolved, "uninvolved", nil, "Trials of the healthy limb")
	cmd.Flags().Float64SliceVar(&involved, "involved", nil, "Trials of the operated limb")
	cmd.Flags().BoolVar(&lowerIsBetter, "lower-is-better", false, "Smaller values are better (timed tests)")

	return cmd
}

// TTBWCmd returns the ttbw command
func TTBWCmd() *cobra.Command {
	var (
		force      []float64
		bodyWeight float64
		momentArm  float64
	)

	cmd := &cobra.Command{
		Use:     "ttbw",
		Short:   "Compute torque-to-bodyweight (Nm/kg) from dynamometer force trials",
		Example: `  rtsctl ttbw --force 135,137 --body-weight 150`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builder := service.NewRecordBuilder(config.LoadLiteConfig().MomentArmM)
			res, err := builder.ComputeTTBW(force, bodyWeight, momentArm)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Force:      %s lbf\n", formatValue(res.Force))
			fmt.Fprintf(out, "Moment arm: %g m\n", res.MomentArmM)
			fmt.Fprintf(out, "TTBW:       %s Nm/kg\n", formatValue(res.TTBW))
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&force, "force", nil, "Force trials in lbf")
	cmd.Flags().Float64Var(&bodyWeight, "body-weight", 0, "Body weight in pounds")
	cmd.Flags().Float64Var(&momentArm, "moment-arm", 0, "Lever arm in meters (default: RTS_MOMENT_ARM_M or 0.36)")
	_ = cmd.MarkFlagRequired("body-weight")

	return cmd
}

// AggregateCmd returns the aggregate command
func AggregateCmd() *cobra.Command {
	var best bool

	cmd := &cobra.Command{
		Use:   "aggregate TRIAL...",
		Short: "Aggregate repeated trials into one value",
		Long: `Aggregate repeated trials. The mean of the valid trials is the value used for every
metric; --best reports the largest valid trial instead. Zero, negative and non-numeric
trials are ignored.`,
		Example: `  rtsctl aggregate 140 142 0
  rtsctl aggregate --best 140 142`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trials := make([]float64, 0, len(args))
			for _, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring non-numeric trial %q\n", a)
					continue
				}
				trials = append(trials, v)
			}

			value := service.AggregateTrials(trials)
			if best {
				value = service.BestTrial(trials)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
			return nil
		},
	}

	cmd.Flags().BoolVar(&best, "best", false, "Report the best trial instead of the mean")

	return cmd
}
