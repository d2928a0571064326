package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/psantana5/crashtrace/internal/buildinfo"
	"github.com/psantana5/crashtrace/pkg/crash"
	"github.com/psantana5/crashtrace/pkg/modmap"
	"github.com/psantana5/crashtrace/pkg/tracestr"
)

var selftestFault bool

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Exercise the crash report pipeline end to end",
	Long: `Selftest captures this process's own stack, encodes it as a crash
report trace string, decodes the string back and verifies the round trip.
With --fault it instead dereferences nil under the installed handler, which
prints a real crash report and terminates the process.`,
	RunE: runSelftest,
}

func init() {
	selftestCmd.Flags().BoolVar(&selftestFault, "fault", false, "trigger a real segfault through the handler (terminates the process)")
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	if selftestFault {
		handler := crash.Install(crash.Config{BaseURL: GetBaseURL()})
		handler.Guard(func() {
			var p *int
			faultSink = *p
		})
		return nil // unreachable
	}

	var pcs [8]uintptr
	n := runtime.Callers(1, pcs[:])
	table := modmap.NewTable()

	frames := make([]modmap.Resolved, 0, n)
	for _, pc := range pcs[:n] {
		frames = append(frames, table.Resolve(pc))
	}

	cfg := tracestr.Config{
		BaseURL: GetBaseURL(),
		Version: buildinfo.Version,
		Commit:  buildinfo.ShortCommit(),
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
	}
	report := tracestr.Report{
		Frames:  frames,
		Code:    tracestr.CodePanic,
		Message: []byte("selftest report"),
	}

	encoded, err := tracestr.Append(nil, cfg, report)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}
	url := string(encoded)
	fmt.Println(url)

	decoded, err := tracestr.Decode(url, GetBaseURL())
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if decoded.Version != cfg.Version {
		return fmt.Errorf("version mismatch: encoded %q, decoded %q", cfg.Version, decoded.Version)
	}
	if string(decoded.Message) != string(report.Message) {
		return fmt.Errorf("message mismatch: encoded %q, decoded %q", report.Message, decoded.Message)
	}
	if len(decoded.Frames) != len(frames) {
		return fmt.Errorf("frame count mismatch: encoded %d, decoded %d", len(frames), len(decoded.Frames))
	}

	fmt.Printf("selftest ok: %d frames, commit %s\n", len(decoded.Frames), decoded.Commit)
	return nil
}

var faultSink int
