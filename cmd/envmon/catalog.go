package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"envmon/internal/workflow"
	"envmon/pkg/domain"
)

func (a *app) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Maintain reference data"}
	cmd.AddCommand(a.chemicalsCmd(), a.instrumentsCmd(), a.standardsCmd(), a.templatesCmd(), a.itemsCmd())
	return cmd
}

func (a *app) chemicalsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chemicals", Short: "Chemical substances"}

	list := &cobra.Command{
		Use:   "list [term]",
		Short: "List or search chemicals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			chemicals, err := workflow.NewCatalog(a.svc, a.blobs).SearchChemicals(cmd.Context(), term)
			if err != nil {
				return err
			}
			return printJSON(cmd, chemicals)
		},
	}

	var form workflow.ChemicalForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a chemical",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chem, notice, err := workflow.NewCatalog(a.svc, a.blobs).SaveChemical(cmd.Context(), form)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, chem)
		},
	}
	f := add.Flags()
	f.StringVar(&form.Name, "name", "", "chemical name")
	f.StringVar(&form.CASNumber, "cas", "", "CAS registry number")
	f.StringVar(&form.MolecularFormula, "formula", "", "molecular formula")
	f.StringVar(&form.TWA, "twa", "", "8-hour time-weighted average limit")
	f.StringVar(&form.STEL, "stel", "", "short-term exposure limit")
	f.StringVar(&form.Ceiling, "ceiling", "", "ceiling limit")
	f.StringVar(&form.SamplingMethod, "method", "", "sampling method")
	f.StringVar(&form.PhysicalProperties, "properties", "", "physical properties")
	f.StringVar(&form.HealthHazards, "hazards", "", "health hazards")

	remove := &cobra.Command{
		Use:   "delete <cas-number>",
		Short: "Delete a chemical",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notice, err := workflow.NewCatalog(a.svc, a.blobs).DeleteChemical(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func (a *app) instrumentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "instruments", Short: "Monitoring instruments"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instruments, err := a.svc.ListInstruments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, instruments)
		},
	}

	show := &cobra.Command{
		Use:   "show <instrument-id>",
		Short: "Show an instrument with its calibration records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := workflow.NewCatalog(a.svc, a.blobs).InstrumentDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, detail)
		},
	}

	var (
		form   workflow.InstrumentForm
		status string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an instrument",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Status = domain.InstrumentStatus(status)
			inst, notice, err := workflow.NewCatalog(a.svc, a.blobs).SaveInstrument(cmd.Context(), form)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, inst)
		},
	}
	f := add.Flags()
	f.StringVar(&form.ID, "id", "", "instrument ID")
	f.StringVar(&form.Model, "model", "", "model")
	f.StringVar(&form.Manufacturer, "manufacturer", "", "manufacturer")
	f.StringVar(&form.SerialNumber, "serial", "", "serial number")
	f.StringVar(&form.PurchaseDate, "purchased", "", "purchase date (YYYY-MM-DD)")
	f.StringSliceVar(&form.ApplicableItems, "items", nil, "monitoring items the instrument measures")
	f.IntVar(&form.CalibrationInterval, "interval", 12, "calibration interval in months")
	f.StringVar(&status, "status", string(domain.InstrumentAvailable), "availability")
	f.StringVar(&form.Notes, "notes", "", "notes")

	cmd.AddCommand(list, show, add)
	return cmd
}

func (a *app) standardsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "standards",
		Short: "Export the regulatory standards table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, notice := workflow.NewCatalog(a.svc, a.blobs).ExportStandards()
			notify(cmd, notice)
			return writeFile(cmd, outputPath(output, file.Name), file.Data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func (a *app) templatesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "templates", Short: "Word document templates"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := workflow.NewCatalog(a.svc, a.blobs).ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, infos)
		},
	}

	upload := &cobra.Command{
		Use:   "upload <file.docx>",
		Short: "Upload a Word template; plan.docx, quote.docx and report.docx replace the built-in ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, notice, err := workflow.NewCatalog(a.svc, a.blobs).UploadTemplate(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, info)
		},
	}

	cmd.AddCommand(list, upload)
	return cmd
}

func (a *app) itemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "items [monitoring-type]",
		Short: "Show the monitoring item vocabulary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				items, err := a.svc.MonitoringItemsFor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, items)
			}
			catalog, err := a.svc.MonitoringItems(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, catalog)
		},
	}
}
