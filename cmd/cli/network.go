package cli

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scanlab-io/scanlab/internal/netinfo"
	"github.com/scanlab-io/scanlab/internal/netval"
)

// validateCmd checks a target without scanning it.
var validateCmd = &cobra.Command{
	Use:   "validate <target>",
	Short: "Validate a scan target",
	Long: `Check whether a target is acceptable for scanning: a valid IPv4
address or CIDR range, inside a private network, and not larger than
the configured maximum.`,
	Example: `  scanlab validate 192.168.1.0/24
  scanlab validate 10.0.0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// interfacesCmd lists the machine's network interfaces.
var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List network interfaces and the detected local network",
	RunE:  runInterfaces,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(interfacesCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	validator := netval.New(cfg.Scanning.MaxNetworkSize)

	info, err := validator.Describe(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Target:    %s\n", info.Target)
	fmt.Printf("Type:      %s\n", info.Type)
	if info.Type == "network" {
		fmt.Printf("Network:   %s\n", info.NetworkAddress)
		fmt.Printf("Broadcast: %s\n", info.BroadcastAddress)
		fmt.Printf("Netmask:   %s\n", info.Netmask)
	} else {
		fmt.Printf("Address:   %s\n", info.IPAddress)
	}
	fmt.Printf("Hosts:     %d\n", info.NumHosts)
	fmt.Printf("Private:   %t\n", info.IsPrivate)

	return nil
}

func runInterfaces(_ *cobra.Command, _ []string) error {
	ifaces, err := netinfo.ListInterfaces()
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "IP", "Netmask", "Network", "Private")

	for _, iface := range ifaces {
		_ = table.Append([]string{
			iface.Name,
			iface.IP,
			iface.Netmask,
			iface.Network,
			fmt.Sprintf("%t", iface.IsPrivate),
		})
	}
	_ = table.Render()

	if network := netinfo.DetectLocalNetwork(); network != "" {
		fmt.Printf("\nDetected local network: %s\n", network)
	} else {
		fmt.Println("\nNo local network detected.")
	}

	return nil
}
