package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/crashtrace/pkg/modmap"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List executable modules loaded into this process",
	Long:  `Modules prints the executable images the address resolver sees in the current process, the same table the handler uses to turn crash addresses into module-relative offsets.`,
	RunE:  runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

type moduleEntry struct {
	Path     string `json:"path"`
	Base     string `json:"base"`
	Size     uint64 `json:"size"`
	Primary  bool   `json:"primary"`
	Segments int    `json:"segments"`
}

func runModules(cmd *cobra.Command, args []string) error {
	mods := modmap.NewTable().Modules()

	if IsJSONOutput() {
		entries := make([]moduleEntry, 0, len(mods))
		for _, m := range mods {
			entries = append(entries, moduleEntry{
				Path:     m.Path,
				Base:     fmt.Sprintf("0x%x", m.Base),
				Size:     uint64(m.Size),
				Primary:  m.Primary,
				Segments: m.Segments,
			})
		}
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(mods) == 0 {
		fmt.Println("No executable modules visible (resolver unsupported on this platform)")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Path", "Base", "Size", "Segments", "Primary")
	for _, m := range mods {
		primary := ""
		if m.Primary {
			primary = "yes"
		}
		table.Append(
			m.Path,
			fmt.Sprintf("0x%x", m.Base),
			fmt.Sprintf("%d", m.Size),
			fmt.Sprintf("%d", m.Segments),
			primary,
		)
	}
	table.Render()
	fmt.Printf("\nTotal modules: %d\n", len(mods))

	return nil
}
