package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envmon/internal/workflow"
	"envmon/pkg/domain"
)

// parseItem reads ITEM=VALUE[:UNIT[:NOTE]].
func parseItem(s string) (string, domain.ItemMeasurement, error) {
	item, rest, ok := strings.Cut(s, "=")
	item = strings.TrimSpace(item)
	if !ok || item == "" {
		return "", domain.ItemMeasurement{}, fmt.Errorf("invalid item %q, want ITEM=VALUE[:UNIT[:NOTE]]", s)
	}
	parts := strings.SplitN(rest, ":", 3)
	m := domain.ItemMeasurement{Value: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		m.Unit = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		m.Note = parts[2]
	}
	return item, m, nil
}

func (a *app) session(cmd *cobra.Command, projectID, pointID string) (*workflow.SamplingSession, error) {
	s, err := workflow.OpenSamplingSession(cmd.Context(), a.svc, projectID, workflow.WithOperator(a.cfg.Operator))
	if err != nil {
		return nil, err
	}
	if pointID != "" {
		if err := s.SelectPoint(pointID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *app) samplingCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sampling", Short: "Capture field sampling data"}
	var point string
	cmd.PersistentFlags().StringVar(&point, "point", "", "sampling point ID (default: first point)")

	form := &cobra.Command{
		Use:   "form <project-id>",
		Short: "Show the data-entry form of a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], point)
			if err != nil {
				return err
			}
			f, err := s.Form(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, f)
		},
	}

	var (
		env   domain.EnvironmentReadings
		items []string
	)
	record := &cobra.Command{
		Use:   "record <project-id>",
		Short: "Save the measurements of a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], point)
			if err != nil {
				return err
			}
			data := domain.SamplingData{Environment: env, Items: map[string]domain.ItemMeasurement{}}
			for _, raw := range items {
				item, m, err := parseItem(raw)
				if err != nil {
					return err
				}
				data.Items[item] = m
			}
			rec, notice, err := s.Save(cmd.Context(), data)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, rec)
		},
	}
	rf := record.Flags()
	rf.StringVar(&env.SamplingDate, "date", "", "sampling date (YYYY-MM-DD)")
	rf.StringVar(&env.Weather, "weather", "", "weather")
	rf.StringVar(&env.Temperature, "temperature", "", "air temperature")
	rf.StringVar(&env.Humidity, "humidity", "", "relative humidity")
	rf.StringVar(&env.WindSpeed, "wind-speed", "", "wind speed")
	rf.StringArrayVar(&items, "item", nil, "measurement as ITEM=VALUE[:UNIT[:NOTE]], repeatable")

	status := &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show the completion state of every point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], "")
			if err != nil {
				return err
			}
			statuses, err := s.Statuses(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, statuses)
		},
	}

	review := &cobra.Command{
		Use:   "review <project-id>",
		Short: "Show all saved measurements of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], "")
			if err != nil {
				return err
			}
			rows, err := s.Review(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, rows)
		},
	}

	var format, output string
	exportCmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project's sampling data as JSON or xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], "")
			if err != nil {
				return err
			}
			var (
				file   workflow.File
				notice workflow.Notice
			)
			switch strings.ToLower(format) {
			case "json":
				file, notice, err = s.Export(cmd.Context())
			case "xlsx", "excel":
				file, notice, err = s.ExportWorkbook(cmd.Context())
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return writeFile(cmd, outputPath(output, file.Name), file.Data)
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json or xlsx")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: generated name)")

	var cal workflow.CalibrationForm
	calibrate := &cobra.Command{
		Use:   "calibrate <project-id>",
		Short: "Record an on-site instrument calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], point)
			if err != nil {
				return err
			}
			rec, notice, err := s.Calibrate(cmd.Context(), cal)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, rec)
		},
	}
	cf := calibrate.Flags()
	cf.StringVar(&cal.InstrumentID, "instrument", "", "instrument ID")
	cf.StringVar(&cal.BeforeCalibration, "before", "", "reading before calibration")
	cf.StringVar(&cal.StandardConcentration, "standard", "", "standard gas concentration")
	cf.StringVar(&cal.AfterCalibration, "after", "", "reading after calibration")
	cf.StringVar(&cal.CalibrationFactor, "factor", "", "calibration factor (default: standard / after)")
	cf.StringVar(&cal.Notes, "notes", "", "notes")

	var qc workflow.QCSampleForm
	qcCmd := &cobra.Command{
		Use:   "qc <project-id>",
		Short: "Record the QC samples taken at a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd, args[0], point)
			if err != nil {
				return err
			}
			rec, notice, err := s.RecordQCSample(cmd.Context(), qc)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, rec)
		},
	}
	qf := qcCmd.Flags()
	qf.StringVar(&qc.BlankSampleID, "blank", "", "blank sample ID")
	qf.StringVar(&qc.BlankDescription, "blank-description", "", "blank sample description")
	qf.StringVar(&qc.DuplicateOriginalID, "duplicate-of", "", "original sample ID of the duplicate")
	qf.StringVar(&qc.DuplicateDescription, "duplicate-description", "", "duplicate sample description")
	qf.StringVar(&qc.SpikedSampleID, "spiked", "", "spiked sample ID")
	qf.StringVar(&qc.SpikedDescription, "spiked-description", "", "spiked sample description")

	cmd.AddCommand(form, record, status, review, exportCmd, calibrate, qcCmd)
	return cmd
}

func outputPath(flag, generated string) string {
	if flag != "" {
		return flag
	}
	return generated
}
