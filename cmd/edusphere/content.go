package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"edusphere/internal/app"
	"edusphere/internal/portal"
)

// subjects command
var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List subjects",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		subjects := a.Subjects(query)
		if len(subjects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No subjects match.")
			return nil
		}

		rows := make([][]string, 0, len(subjects))
		for _, s := range subjects {
			rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.ResourceCount), s.Description})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Resources", "Description"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderListCmd = &cobra.Command{
	Use:   "list SUBJECT",
	Short: "List the folders of a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		repo := a.Repository()
		if _, ok := repo.Subject(args[0]); !ok {
			return fmt.Errorf("subject %s: %w", args[0], portal.ErrNotFound)
		}

		folders := repo.FoldersForSubject(args[0])
		uncategorized := len(repo.MaterialsAt(args[0], ""))
		if len(folders) == 0 && uncategorized == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No folders.")
			return nil
		}

		rows := make([][]string, 0, len(folders)+1)
		for _, f := range folders {
			prov, _ := repo.Provenance(f.ID)
			rows = append(rows, []string{
				f.ID,
				f.Name,
				f.CreatedAt,
				strconv.Itoa(len(repo.MaterialsAt(f.SubjectID, f.ID))),
				string(prov),
			})
		}
		if uncategorized > 0 {
			rows = append(rows, []string{"", "(uncategorized)", "", strconv.Itoa(uncategorized), ""})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Created", "Materials", "Origin"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
		return nil
	},
}

var folderAddCmd = &cobra.Command{
	Use:   "add SUBJECT [NAME...]",
	Short: "Create a folder",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		f := a.Repository().CreateFolder(args[0], strings.Join(args[1:], " "))
		fmt.Fprintf(cmd.OutOrStdout(), "Created folder %s (%s)\n", f.ID, f.Name)
		return nil
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a folder; its materials become uncategorized",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		f, ok := a.Repository().Folder(args[0])
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No folder %s; nothing deleted.\n", args[0])
			return nil
		}
		if err := confirm(cmd, fmt.Sprintf("delete folder %q", f.Name)); err != nil {
			return err
		}
		a.Repository().DeleteFolder(f.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %s\n", f.ID)
		return nil
	},
}

// material command
var materialCmd = &cobra.Command{
	Use:   "material",
	Short: "Manage materials",
}

var materialListCmd = &cobra.Command{
	Use:   "list SUBJECT",
	Short: "List materials of a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, _ := cmd.Flags().GetString("folder")
		query, _ := cmd.Flags().GetString("query")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		repo := a.Repository()
		if _, ok := repo.Subject(args[0]); !ok {
			return fmt.Errorf("subject %s: %w", args[0], portal.ErrNotFound)
		}

		var materials []portal.Material
		if query != "" {
			res := repo.Search(args[0], query)
			materials = res.Materials
			for _, f := range res.Folders {
				fmt.Fprintf(cmd.OutOrStdout(), "Folder: %s (%s)\n", f.Name, f.ID)
			}
		} else {
			materials = repo.MaterialsAt(args[0], folderID)
		}
		if len(materials) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No materials.")
			return nil
		}

		printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Type", "Date", "Preview"}, materialRows(a, materials), nil)
		return nil
	},
}

func materialRows(a *app.PortalApp, materials []portal.Material) [][]string {
	rows := make([][]string, 0, len(materials))
	for _, m := range materials {
		pv := a.Repository().Preview(m)
		preview := pv.Reason
		if pv.Available {
			preview = pv.URL
		}
		rows = append(rows, []string{m.ID, m.Title, string(m.Type), m.Date, preview})
	}
	return rows
}

var materialAddCmd = &cobra.Command{
	Use:   "add SUBJECT",
	Short: "Add a material from a link or a local file",
	Long: `Add a material from a link (--url) or a local file (--file).

Uploaded files are held only for the running process: once it exits the
material stays listed but its preview is no longer available. Use 'edusphere
serve' to upload files that should stay viewable for a session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, _ := cmd.Flags().GetString("folder")
		title, _ := cmd.Flags().GetString("title")
		typeName, _ := cmd.Flags().GetString("type")
		url, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")

		if url != "" && file != "" {
			return fmt.Errorf("--url and --file are mutually exclusive")
		}
		var typ portal.MaterialType
		if typeName != "" {
			t, err := portal.ParseMaterialType(typeName)
			if err != nil {
				return err
			}
			typ = t
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		in := portal.NewMaterial{
			SubjectID: args[0],
			FolderID:  folderID,
			Title:     title,
			Type:      typ,
			URL:       url,
		}

		var m portal.Material
		if file != "" {
			m, err = a.AddMaterialFromFile(in, file)
			if err != nil {
				return err
			}
		} else {
			m = a.Repository().CreateMaterial(in)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", m.Type, m.ID, m.Title)
		if folderID != "" && m.Uncategorized() {
			fmt.Fprintf(cmd.OutOrStdout(), "Folder %s does not exist; the material is uncategorized.\n", folderID)
		}
		return nil
	},
}

var materialRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a material",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		m, ok := a.Repository().Material(args[0])
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No material %s; nothing deleted.\n", args[0])
			return nil
		}
		if err := confirm(cmd, fmt.Sprintf("delete material %q", m.Title)); err != nil {
			return err
		}
		a.Repository().DeleteMaterial(m.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted material %s\n", m.ID)
		return nil
	},
}

func init() {
	subjectsCmd.Flags().StringP("query", "q", "", "Only subjects whose name contains this text")

	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderRmCmd)

	materialCmd.AddCommand(materialListCmd)
	materialListCmd.Flags().String("folder", "", "Folder ID (default: uncategorized materials)")
	materialListCmd.Flags().StringP("query", "q", "", "Search folders and material titles")

	materialCmd.AddCommand(materialAddCmd)
	materialAddCmd.Flags().String("folder", "", "Folder ID")
	materialAddCmd.Flags().StringP("title", "t", "", "Title (default: file name or link)")
	materialAddCmd.Flags().String("type", "", "Material type: pdf, video, doc, image or link")
	materialAddCmd.Flags().String("url", "", "Link to an external resource")
	materialAddCmd.Flags().String("file", "", "Local file to upload")

	materialCmd.AddCommand(materialRmCmd)
}
