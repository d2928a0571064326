package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/crashtrace/pkg/tracestr"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <trace-string>",
	Short: "Decode a crash report trace string",
	Long:  `Decode parses a trace string URL emitted by the fatal-error handler and prints its header, stack frames and crash reason.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// decodedReport is the JSON output shape of a decoded trace string
type decodedReport struct {
	Version       string         `json:"version"`
	Platform      string         `json:"platform"`
	Commit        string         `json:"commit"`
	FormatVersion string         `json:"format_version"`
	Reason        string         `json:"reason"`
	Message       string         `json:"message,omitempty"`
	Address       string         `json:"address,omitempty"`
	Name          string         `json:"name,omitempty"`
	View          bool           `json:"view"`
	Frames        []decodedFrame `json:"frames"`
}

type decodedFrame struct {
	Kind   string `json:"kind"`
	Offset int32  `json:"offset"`
	Module string `json:"module,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	d, err := tracestr.Decode(args[0], GetBaseURL())
	if err != nil {
		return fmt.Errorf("failed to decode trace string: %w", err)
	}

	report := decodedReport{
		Version:       d.Version,
		Platform:      string(d.Platform),
		Commit:        d.Commit,
		FormatVersion: string(d.FormatVersion),
		Reason:        reasonName(d.Code),
		Message:       string(d.Message),
		View:          d.View,
		Name:          d.Name,
	}
	if hasAddress(d.Code) {
		report.Address = fmt.Sprintf("0x%x", d.Addr)
	}
	for _, f := range d.Frames {
		report.Frames = append(report.Frames, decodedFrame{
			Kind:   f.Kind.String(),
			Offset: f.Offset,
			Module: f.Module,
		})
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Version", report.Version})
	table.Append([]string{"Platform", report.Platform})
	table.Append([]string{"Commit", report.Commit})
	table.Append([]string{"Format", report.FormatVersion})
	table.Append([]string{"Reason", report.Reason})
	if report.Message != "" {
		table.Append([]string{"Message", report.Message})
	}
	if report.Address != "" {
		table.Append([]string{"Address", report.Address})
	}
	if report.Name != "" {
		table.Append([]string{"Name", report.Name})
	}
	table.Append([]string{"View request", fmt.Sprintf("%v", report.View)})
	table.Render()

	if len(report.Frames) == 0 {
		fmt.Println("\nNo stack frames")
		return nil
	}

	fmt.Println()
	frames := tablewriter.NewWriter(os.Stdout)
	frames.Header("#", "Kind", "Module", "Offset")
	for i, f := range report.Frames {
		module := f.Module
		if module == "" && f.Kind == "native" {
			module = "(main executable)"
		}
		frames.Append(
			fmt.Sprintf("%d", i),
			f.Kind,
			module,
			fmt.Sprintf("0x%x", f.Offset),
		)
	}
	frames.Render()

	return nil
}

func reasonName(code byte) string {
	switch code {
	case tracestr.CodePanic:
		return "panic"
	case tracestr.CodeUnreachable:
		return "unreachable code"
	case tracestr.CodeSegFault:
		return "segmentation fault"
	case tracestr.CodeIllegalInstruction:
		return "illegal instruction"
	case tracestr.CodeBusError:
		return "bus error"
	case tracestr.CodeFloatingPointError:
		return "floating point error"
	case tracestr.CodeMisalignment:
		return "misaligned access"
	case tracestr.CodeStackOverflow:
		return "stack overflow"
	case tracestr.CodeInternalError:
		return "internal error"
	default:
		return fmt.Sprintf("unknown (%c)", code)
	}
}

func hasAddress(code byte) bool {
	switch code {
	case tracestr.CodeSegFault, tracestr.CodeIllegalInstruction,
		tracestr.CodeBusError, tracestr.CodeFloatingPointError:
		return true
	}
	return false
}
