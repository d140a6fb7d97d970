package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"envmon/internal/workflow"
	"envmon/pkg/domain"
)

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "projects", Short: "Manage monitoring projects"}

	var status string
	list := &cobra.Command{
		Use:   "list [term]",
		Short: "List projects, optionally filtered by text and status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			projects, err := workflow.NewProjects(a.svc).Search(cmd.Context(), term, domain.ProjectStatus(status))
			if err != nil {
				return err
			}
			return printJSON(cmd, projects)
		},
	}
	list.Flags().StringVar(&status, "status", "", "only projects in this status (報價中, 執行中, 已完成)")

	show := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with per-point status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := workflow.NewProjects(a.svc).Detail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, detail)
		},
	}

	var progress string
	setStatus := &cobra.Command{
		Use:   "status <project-id> <status>",
		Short: "Move a project to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, notice, err := workflow.NewProjects(a.svc).SetStatus(cmd.Context(), args[0], domain.ProjectStatus(args[1]), progress)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, project)
		},
	}
	setStatus.Flags().StringVar(&progress, "progress", "", "progress label")

	remove := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its sampling data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notice, err := workflow.NewProjects(a.svc).Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return nil
		},
	}

	cmd.AddCommand(list, show, setStatus, a.createProjectCmd(), remove)
	return cmd
}

func (a *app) createProjectCmd() *cobra.Command {
	var (
		basic      workflow.BasicInfoForm
		plan       workflow.PlanForm
		pointNames []string
		pointType  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project through the four wizard steps",
		Long: "Points are generated from the monitoring type's item vocabulary and " +
			"named from --point-names; unnamed points are numbered.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := workflow.NewProjectWizard(a.svc)
			w.SetBasicInfo(basic)
			if _, err := w.Next(ctx); err != nil {
				return err
			}
			w.SetPlan(plan)
			if _, err := w.Next(ctx); err != nil {
				return err
			}
			for i, draft := range w.Points() {
				draft.Name = fmt.Sprintf("監測點%d", i+1)
				if i < len(pointNames) && pointNames[i] != "" {
					draft.Name = pointNames[i]
				}
				if pointType != "" {
					draft.Type = domain.PointType(pointType)
				}
				if err := w.SetPoint(i, draft); err != nil {
					return err
				}
			}
			if _, err := w.Next(ctx); err != nil {
				return err
			}
			summary := w.Summary(ctx)
			project, notice, err := w.Commit(ctx)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, struct {
				Project domain.Project   `json:"project"`
				Summary workflow.Summary `json:"summary"`
			}{project, summary})
		},
	}
	f := cmd.Flags()
	f.StringVar(&basic.ClientID, "client", "", "client ID")
	f.StringVar(&basic.ProjectName, "name", "", "project name")
	f.StringVar(&basic.MonitoringDate, "date", "", "monitoring start date (YYYY-MM-DD)")
	f.IntVar(&basic.MonitoringDays, "days", 1, "monitoring duration in days")
	f.StringVar(&basic.FacilityAddress, "address", "", "facility address")
	f.StringVar(&basic.ProjectDescription, "description", "", "project description")
	f.StringVar(&plan.MonitoringType, "type", "", "monitoring type, e.g. 室內空氣品質監測")
	f.IntVar(&plan.MonitoringPoints, "points", 1, "number of sampling points")
	f.StringSliceVar(&pointNames, "point-names", nil, "comma-separated point names")
	f.StringVar(&pointType, "point-type", "", "point type for every point, e.g. 室外點位")
	return cmd
}
