package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/acl-rts-tracker/internal/domain"
)

// PatientCmd returns the patient command
func PatientCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage registered patients",
	}
	cmd.AddCommand(patientAddCmd(opts))
	cmd.AddCommand(patientListCmd(opts))
	return cmd
}

func patientAddCmd(opts *rootOptions) *cobra.Command {
	var mrn, name, surgery string

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Register a patient",
		Example: `  rtsctl patient add --mrn "#000000" --name "Rose, Derrick" --surgery-date 2024-10-17`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := domain.ParseDate(surgery)
			if err != nil {
				return domain.NewValidationError("surgery_date", err.Error(), surgery)
			}
			patient := &domain.Patient{MRN: mrn, Name: name, SurgeryDate: date}

			return withSession(opts, func(s *session) error {
				if err := s.service.RegisterPatient(cmd.Context(), patient); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s), surgery %s\n",
					patient.MRN, patient.Name, patient.SurgeryDate.Format("2006-01-02"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mrn, "mrn", "", "Medical record number")
	cmd.Flags().StringVar(&name, "name", "", "Patient name (Last, First)")
	cmd.Flags().StringVar(&surgery, "surgery-date", "", "ACL reconstruction date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("mrn")
	_ = cmd.MarkFlagRequired("surgery-date")

	return cmd
}

func patientListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(s *session) error {
				patients, err := s.service.ListPatients(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(patients) == 0 {
					fmt.Fprintln(out, "No patients registered.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "MRN\tNAME\tSURGERY")
				for _, p := range patients {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", p.MRN, p.Name, p.SurgeryDate.Format("2006-01-02"))
				}
				return tw.Flush()
			})
		},
	}
}

// assessmentFile is the JSON accepted by assess. Dates are plain YYYY-MM-DD.
type assessmentFile struct {
	domain.AssessmentInput
	VisitDate string `json:"visit_date"`
}

func readAssessment(r io.Reader) (*domain.AssessmentInput, error) {
	var f assessmentFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode assessment: %w", err)
	}
	visit, err := domain.ParseDate(f.VisitDate)
	if err != nil {
		return nil, domain.NewValidationError("visit_date", err.Error(), f.VisitDate)
	}
	in := f.AssessmentInput
	in.VisitDate = visit
	return &in, nil
}

// AssessCmd returns the assess command
func AssessCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "assess MRN",
		Short: "Record a visit from a JSON file of raw trials",
		Long: `Record a visit. The file holds the raw inputs: visit_date, acl_rsi, lefs,
body_weight_lbs, and trial sets such as quad_force {"uninvolved": [...], "involved": [...]}.
Use "-" to read standard input. --dry-run validates and classifies without storing.`,
		Example: `  rtsctl assess "#000000" --file visit.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open assessment file: %w", err)
				}
				defer f.Close()
				r = f
			}
			in, err := readAssessment(r)
			if err != nil {
				return err
			}

			return withSession(opts, func(s *session) error {
				var record *domain.AssessmentRecord
				if dryRun {
					record, err = s.service.BuildRecord(cmd.Context(), args[0], in)
				} else {
					record, err = s.service.RecordAssessment(cmd.Context(), args[0], in)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				verb := "Recorded"
				if dryRun {
					verb = color.New(color.FgCyan).Sprint("Validated (not stored)")
				}
				fmt.Fprintf(out, "%s visit %s for %s, week %d\n",
					verb, record.VisitDate.Format("2006-01-02"), record.MRN, record.WeeksPostOp)
				writePhase(out, s.service.Classify(record))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Assessment JSON file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and classify without storing")

	return cmd
}

// StatusCmd returns the status command
func StatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status MRN",
		Short: "Show the patient's current phase and what blocks the next one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(s *session) error {
				report, err := s.service.CurrentPhase(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, report)
				}

				fmt.Fprintf(out, "%s  %s\n", report.Patient.MRN, report.Patient.Name)
				fmt.Fprintf(out, "Latest visit: %s (week %d), %d on record\n",
					report.Latest.VisitDate.Format("2006-01-02"), report.Latest.WeeksPostOp, report.Assessments)
				writePhase(out, report.Phase)

				fmt.Fprintln(out, "Readiness:")
				for _, axis := range report.Radar {
					fmt.Fprintf(out, "  %-22s %8s / %g\n", axis.Axis, formatValue(axis.Current), axis.Target)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")

	return cmd
}

// SeriesCmd returns the series command
func SeriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "series MRN METRIC",
		Short:   "Show one metric across a patient's visits",
		Example: `  rtsctl series "#000000" KE_LSI`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(s *session) error {
				points, err := s.service.MetricSeries(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(points) == 0 {
					fmt.Fprintf(out, "No measured %s values.\n", args[1])
					return nil
				}
				for _, p := range points {
					fmt.Fprintf(out, "%s  %.2f\n", p.Date.Format("2006-01-02"), p.Value)
				}
				return nil
			})
		},
	}
}
