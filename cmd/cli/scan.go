package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/orchestrator"
	"github.com/scanlab-io/scanlab/internal/store"
)

var (
	scanTarget  string
	scanTypeStr string
	scanPorts   string
	scanConsent bool
	scanLive    bool
)

const scanPollInterval = 250 * time.Millisecond

// scanCmd runs a one-off scan and prints the discovered devices.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a private network target",
	Long: `Run a single scan against a private IP address or CIDR range and
print the discovered devices. Scans run in simulated mode unless --live
is given and real scanning is enabled in the configuration.

Every scan requires the --consent flag confirming that you own or are
authorized to scan the target network.`,
	Example: `  scanlab scan --target 192.168.1.0/24 --consent
  scanlab scan --target 192.168.1.10 --type deep --consent
  scanlab scan --target 10.0.0.0/28 --type custom --ports 8000-9000 --consent`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTarget, "target", "", "Private IP address or CIDR range to scan")
	scanCmd.Flags().StringVar(&scanTypeStr, "type", "quick", "Scan type: quick, deep, discovery, custom")
	scanCmd.Flags().StringVar(&scanPorts, "ports", "", "Port range for custom scans (e.g. '8000-9000')")
	scanCmd.Flags().BoolVar(&scanConsent, "consent", false, "Confirm you own or are authorized to scan this network")
	scanCmd.Flags().BoolVar(&scanLive, "live", false, "Use the real nmap engine instead of the simulator")

	_ = scanCmd.MarkFlagRequired("target")
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	scanType, err := parseScanType(scanTypeStr)
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	if scanLive {
		// Passing --live is the operator's acknowledgement.
		if err := rt.orch.SetLiveScanConfirm(ctx, true); err != nil {
			return err
		}
		if err := rt.orch.SetNetworkMode(ctx, store.ModeLive); err != nil {
			return err
		}
	} else if err := rt.orch.SetNetworkMode(ctx, store.ModeTraining); err != nil {
		return err
	}

	result, err := rt.orch.StartScan(ctx, orchestrator.ScanRequest{
		Target:      scanTarget,
		ScanType:    scanType,
		PortRange:   scanPorts,
		UserConsent: scanConsent,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Scan %s started (%s, %s)\n", result.ScanID, scanTarget, scanType)

	final, err := waitForScan(ctx, rt.orch, result.ScanID)
	if err != nil {
		return err
	}

	switch final.Status {
	case model.ScanStatusCompleted:
		fmt.Printf("Scan completed: %d devices found, %d hosts scanned\n\n",
			final.DeviceCount(), final.ScannedHosts)
		displayDeviceTable(final.Devices)
	case model.ScanStatusCancelled:
		fmt.Println("Scan cancelled")
	default:
		return fmt.Errorf("scan failed: %s", final.ErrorMessage)
	}

	return nil
}

// waitForScan polls until the scan reaches a terminal status.
func waitForScan(ctx context.Context, orch *orchestrator.Orchestrator, scanID string) (*model.ScanResult, error) {
	ticker := time.NewTicker(scanPollInterval)
	defer ticker.Stop()

	for {
		result, err := orch.GetScanStatus(ctx, scanID)
		if err != nil {
			return nil, err
		}
		if result.Status.Terminal() {
			return result, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			orch.CancelScan(context.Background(), scanID)
			return nil, ctx.Err()
		}
	}
}

// displayDeviceTable prints discovered devices in a table format.
func displayDeviceTable(devices []model.Device) {
	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("IP", "Hostname", "Type", "Vendor", "OS", "Open Ports")

	for i := range devices {
		d := &devices[i]
		if !d.IsUp {
			continue
		}

		ports := make([]string, 0, len(d.Ports))
		for _, p := range d.Ports {
			ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Service))
		}

		_ = table.Append([]string{
			d.IP,
			d.Hostname,
			string(d.DeviceType),
			d.Vendor,
			d.OS,
			strings.Join(ports, ", "),
		})
	}

	_ = table.Render()
}
