package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"

	"envmon/internal/reports"
	"envmon/internal/workflow"
	"envmon/pkg/domain"
)

// runJobs starts a worker, enqueues through submit and waits for every job.
// Progress is written to stderr.
func (a *app) runJobs(cmd *cobra.Command, submit func(context.Context, *reports.Worker) ([]reports.Job, error)) error {
	ctx := cmd.Context()
	opts := []reports.Option{
		reports.WithLogger(a.logger.Named("reports")),
		reports.WithStageScale(a.cfg.Reports.StageScale),
		reports.WithProgress(func(j reports.Job) {
			if j.Status == reports.StatusRunning {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %3d%% %s\n", j.ID, j.Progress, j.Stage)
			}
		}),
	}
	if a.metrics != nil {
		opts = append(opts, reports.WithMetrics(a.metrics))
	}
	w := reports.NewWorker(a.svc, a.docs, a.blobs, opts...)
	w.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			a.logger.Warn("stop report worker", "error", err)
		}
	}()

	jobs, err := submit(ctx, w)
	if err != nil {
		return err
	}
	results := make([]reports.Job, 0, len(jobs))
	failed := 0
	for _, job := range jobs {
		done, err := w.Wait(ctx, job.ID)
		if err != nil {
			for _, j := range jobs {
				w.Cancel(j.ID)
			}
			notify(cmd, workflow.Notice{Level: workflow.LevelInfo, Message: reports.NoticeCancelled})
			return err
		}
		if done.Status != reports.StatusSucceeded {
			failed++
		}
		results = append(results, done)
	}
	if err := printJSON(cmd, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d report(s) failed", failed, len(results))
	}
	msg := reports.NoticeCompleted
	if len(results) > 1 {
		msg = reports.NoticeBatchCompleted
	}
	notify(cmd, workflow.Notice{Level: workflow.LevelSuccess, Message: msg})
	return nil
}

func (a *app) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Generate reports and manage report history"}
	cmd.AddCommand(a.generateReportCmd(), a.customReportCmd(), a.batchReportCmd())

	history := &cobra.Command{
		Use:   "history [term]",
		Short: "List or search generated reports, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := reports.NewHistory(a.svc, a.blobs)
			var (
				entries []domain.ReportHistoryEntry
				err     error
			)
			if len(args) == 1 {
				entries, err = h.Search(cmd.Context(), args[0])
			} else {
				entries, err = h.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		},
	}

	var output string
	download := &cobra.Command{
		Use:   "download <report-id>",
		Short: "Write a stored report artifact to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, data, err := reports.NewHistory(a.svc, a.blobs).Download(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeFile(cmd, outputPath(output, path.Base(entry.ArtifactKey)), data)
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: stored name)")

	remove := &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report and its artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reports.NewHistory(a.svc, a.blobs).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd, workflow.Notice{Level: workflow.LevelSuccess, Message: reports.NoticeDeleted})
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every report and artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := reports.NewHistory(a.svc, a.blobs).Clear(cmd.Context()); err != nil {
				return err
			}
			notify(cmd, workflow.Notice{Level: workflow.LevelSuccess, Message: reports.NoticeCleared})
			return nil
		},
	}

	cmd.AddCommand(history, download, remove, clearCmd)
	return cmd
}

func (a *app) generateReportCmd() *cobra.Command {
	var reportType, format string
	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Generate a standard report for one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJobs(cmd, func(ctx context.Context, w *reports.Worker) ([]reports.Job, error) {
				job, err := w.Enqueue(ctx, reports.QuickRequest{
					ProjectID:    args[0],
					ReportType:   domain.ReportType(reportType),
					OutputFormat: format,
				})
				if err != nil {
					return nil, err
				}
				return []reports.Job{job}, nil
			})
		},
	}
	cmd.Flags().StringVar(&reportType, "type", string(domain.ReportMonitoringSummary),
		"monitoring_summary, analysis_report, plan_document, compliance_report or calibration_report")
	cmd.Flags().StringVar(&format, "format", string(reports.FormatExcel), "excel, word or json")
	return cmd
}

func (a *app) customReportCmd() *cobra.Command {
	var (
		name, projectID, format string
		fields                  []string
	)
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Generate a report with selected sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runJobs(cmd, func(ctx context.Context, w *reports.Worker) ([]reports.Job, error) {
				req := reports.CustomRequest{Name: name, ProjectID: projectID, OutputFormat: format}
				for _, f := range fields {
					req.Fields = append(req.Fields, reports.Field(f))
				}
				job, err := w.EnqueueCustom(ctx, req)
				if err != nil {
					return nil, err
				}
				return []reports.Job{job}, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "report name")
	f.StringVar(&projectID, "project", "", "project ID (default: every project)")
	defaults := make([]string, 0, len(reports.DefaultFields))
	for _, field := range reports.DefaultFields {
		defaults = append(defaults, string(field))
	}
	f.StringSliceVar(&fields, "fields", defaults,
		"sections: project_info, client_info, sampling_data, calibration_data, qc_data")
	f.StringVar(&format, "format", string(reports.FormatExcel), "excel or json")
	return cmd
}

func (a *app) batchReportCmd() *cobra.Command {
	var from, to, reportType, format string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate one report per project monitored in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runJobs(cmd, func(ctx context.Context, w *reports.Worker) ([]reports.Job, error) {
				jobs, err := w.EnqueueBatch(ctx, reports.BatchRequest{
					StartDate:    from,
					EndDate:      to,
					ReportType:   domain.ReportType(reportType),
					OutputFormat: format,
				})
				if err == nil {
					notify(cmd, workflow.Notice{Level: workflow.LevelInfo, Message: reports.NoticeBatchStarted})
				}
				return jobs, err
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "first monitoring date (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "last monitoring date (YYYY-MM-DD)")
	f.StringVar(&reportType, "type", string(domain.ReportMonitoringSummary), "report type")
	f.StringVar(&format, "format", string(reports.FormatExcel), "excel, word or json")
	return cmd
}
