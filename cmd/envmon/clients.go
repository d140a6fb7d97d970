package main

import (
	"github.com/spf13/cobra"

	"envmon/internal/workflow"
)

func (a *app) clientsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "clients", Short: "Manage clients"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clients, err := a.svc.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, clients)
		},
	}

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search clients by name, tax ID, contact or phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := workflow.NewClients(a.svc).Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, clients)
		},
	}

	show := &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client with its projects and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := workflow.NewClients(a.svc).Detail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, detail)
		},
	}

	var form workflow.ClientForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, notice, err := workflow.NewClients(a.svc).Save(cmd.Context(), form)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, client)
		},
	}
	clientFlags(add, &form)

	var updateForm workflow.ClientForm
	update := &cobra.Command{
		Use:   "update <client-id>",
		Short: "Overwrite a client's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, notice, err := workflow.NewClients(a.svc).Update(cmd.Context(), args[0], updateForm)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, client)
		},
	}
	clientFlags(update, &updateForm)

	remove := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client without projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notice, err := workflow.NewClients(a.svc).Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return nil
		},
	}

	cmd.AddCommand(list, search, show, add, update, remove)
	return cmd
}

func clientFlags(cmd *cobra.Command, form *workflow.ClientForm) {
	f := cmd.Flags()
	f.StringVar(&form.CompanyName, "company", "", "company name")
	f.StringVar(&form.TaxID, "tax-id", "", "8-digit unified business number")
	f.StringVar(&form.ContactName, "contact", "", "contact person")
	f.StringVar(&form.ContactTitle, "title", "", "contact title")
	f.StringVar(&form.Phone, "phone", "", "phone number")
	f.StringVar(&form.Email, "email", "", "email address")
	f.StringVar(&form.Address, "address", "", "company address")
}
