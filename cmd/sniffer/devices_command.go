package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sniffer/internal/capture"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "devices",
		Short:       "List capture devices",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			devices, err := ctx.lister.Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return errors.New("no capture devices found; capturing may require elevated privileges")
			}

			localIP, _ := capture.LocalIPv4()
			rows := make([][]string, 0, len(devices))
			for i, dev := range devices {
				rows = append(rows, []string{
					strconv.Itoa(i),
					dev.Name,
					dev.Description,
					strings.Join(dev.Addresses, ", "),
					yesNo(dev.HasAddress(localIP)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "Description", "Addresses", "Local"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if localIP != "" {
				fmt.Fprintf(out, "Local address: %s\n", localIP)
			}
			return nil
		},
	}
}
