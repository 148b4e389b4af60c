package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the role catalog",
	Long:  `Print every role with its inherited roles and effective permissions, highest rank first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := rbac.LoadCatalog(catalogPath)
		if err != nil {
			return err
		}
		return renderCatalog(catalog)
	},
}

func renderCatalog(catalog *rbac.Catalog) error {
	resolver := rbac.NewResolver(catalog)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Role", "Inherits", "Permissions", "Effective"})
	for _, role := range catalog.Hierarchy() {
		inherits, err := catalog.InheritedRoles(role)
		if err != nil {
			return err
		}
		perms, err := resolver.ResolveRolePermissions(role)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", role, err)
		}
		t.AppendRow(table.Row{
			role,
			strings.Join(rbac.RoleStrings(inherits), ", "),
			perms.Len(),
			strings.Join(rbac.PermissionStrings(perms.List()), "\n"),
		})
		t.AppendSeparator()
	}
	t.Render()
	return nil
}

func init() {
	catalogCmd.Flags().StringVar(&catalogPath, "file", "", "catalog yaml to load instead of the embedded one")
}
