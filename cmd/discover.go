package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/pkg/clickup"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Explore the ClickUp workspace",
	Long:  "Verifies the API token, then walks teams, spaces, and lists. With --list, prints that list's custom fields and the resolved lead field mapping.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		listID, _ := cmd.Flags().GetString("list")
		save, _ := cmd.Flags().GetBool("save")

		client := newClickUpClient()

		user, err := client.AuthorizedUser(ctx)
		if err != nil {
			return eris.Wrap(err, "verify token")
		}
		fmt.Fprintf(os.Stdout, "Authorized as %s (%s)\n\n", user.Username, user.Email)

		if listID != "" {
			return discoverFields(ctx, os.Stdout, client, listID, save)
		}
		return discoverWorkspace(ctx, os.Stdout, client)
	},
}

func init() {
	discoverCmd.Flags().String("list", "", "inspect one list's custom fields and field mapping")
	discoverCmd.Flags().Bool("save", false, "cache the resolved field mapping for uploads")
	rootCmd.AddCommand(discoverCmd)
}

// discoverWorkspace walks team -> space -> list and prints the tree.
func discoverWorkspace(ctx context.Context, out io.Writer, client clickup.Client) error {
	teams, err := client.ListTeams(ctx)
	if err != nil {
		return eris.Wrap(err, "list teams")
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM\tSPACE\tLIST\tLIST ID\tTASKS")

	for _, team := range teams {
		spaces, err := client.ListSpaces(ctx, team.ID)
		if err != nil {
			return eris.Wrapf(err, "list spaces for team %s", team.ID)
		}
		for _, space := range spaces {
			lists, err := client.ListLists(ctx, space.ID)
			if err != nil {
				return eris.Wrapf(err, "list lists for space %s", space.ID)
			}
			for _, list := range lists {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", team.Name, space.Name, list.Name, list.ID, list.TaskCount)
			}
		}
	}
	return w.Flush()
}

// discoverFields prints a list's custom fields and the lead mapping they
// resolve to.
func discoverFields(ctx context.Context, out io.Writer, client clickup.Client, listID string, save bool) error {
	fields, err := client.ListFields(ctx, listID)
	if err != nil {
		return eris.Wrapf(err, "list fields for %s", listID)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tID")
	fmt.Fprintln(w, "-----\t----\t--")
	for _, f := range fields {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.Type, f.ID)
	}
	_ = w.Flush()

	mapping := clickup.ResolveFieldMapping(fields)
	fmt.Fprintln(out, "\nResolved lead mapping:")
	mw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	printMappingRow(mw, "company", mapping.Company)
	printMappingRow(mw, "email", mapping.Email)
	printMappingRow(mw, "phone", mapping.Phone)
	printMappingRow(mw, "estimated_value", mapping.EstimatedValue)
	printMappingRow(mw, "last_contact", mapping.LastContact)
	printMappingRow(mw, "opportunity_stage", mapping.OpportunityStage)
	printMappingRow(mw, "opportunity_type", mapping.OpportunityType)
	_ = mw.Flush()

	if !mapping.Complete() {
		fmt.Fprintln(out, "\nMapping is incomplete: uploads need company, email, phone, and an estimated value field.")
		return nil
	}

	if save {
		if err := mapping.Save(cfg.ClickUp.MappingFile); err != nil {
			return eris.Wrapf(err, "save mapping to %s", cfg.ClickUp.MappingFile)
		}
		fmt.Fprintf(out, "\nMapping cached to %s\n", cfg.ClickUp.MappingFile)
	}
	return nil
}

func printMappingRow(w io.Writer, name, id string) {
	if id == "" {
		id = "(not found)"
	}
	fmt.Fprintf(w, "  %s\t%s\n", name, id)
}
