package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// Sheet names in the exported workbook.
const (
	SheetClients = "Clients"
	SheetPorts   = "Ports"
	SheetDevices = "Devices"
)

var clientHeaders = []string{
	"Network", "Description", "MAC", "IP", "Manufacturer", "OS", "VLAN", "Status", "Last Seen",
}

var portHeaders = []string{
	"Network", "Switch Name", "Switch Serial", "Switch Model", "Port ID", "Port Name", "VLAN", "PoE Enabled", "Link Status",
}

var deviceHeaders = []string{
	"Network", "Name", "Serial", "Model", "MAC", "Firmware", "LAN IP", "Tags", "Status", "Last Reported", "Uptime",
}

// WriteWorkbook streams the result as an Excel workbook with one sheet
// per audit task.
func WriteWorkbook(w io.Writer, result *model.AuditResult) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteWorkbookFile writes the workbook to path.
func WriteWorkbookFile(path string, result *model.AuditResult) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(result *model.AuditResult) (*excelize.File, error) {
	f := excelize.NewFile()

	// The default sheet becomes Clients; the rest are appended.
	if err := f.SetSheetName("Sheet1", SheetClients); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetPorts, SheetDevices} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeClientSheet(f, result.FilteredClients); err != nil {
		f.Close()
		return nil, err
	}
	if err := writePortSheet(f, result.AccessPorts); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDeviceSheet(f, result.DeviceInventory); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeClientSheet(f *excelize.File, clients []model.ClientRecord) error {
	rows := make([][]any, 0, len(clients)+1)
	rows = append(rows, toAnyRow(clientHeaders))
	for _, c := range clients {
		rows = append(rows, []any{
			c.Network, c.Description, c.MAC, c.IP, c.Manufacturer, c.OS, c.VLAN, c.Status, c.LastSeen,
		})
	}
	return writeRows(f, SheetClients, rows)
}

func writePortSheet(f *excelize.File, ports []model.AccessPortRecord) error {
	rows := make([][]any, 0, len(ports)+1)
	rows = append(rows, toAnyRow(portHeaders))
	for _, p := range ports {
		rows = append(rows, []any{
			p.Network, p.SwitchName, p.SwitchSerial, p.SwitchModel, p.PortID, p.PortName, p.VLAN, p.PoEEnabled, p.LinkStatus,
		})
	}
	return writeRows(f, SheetPorts, rows)
}

func writeDeviceSheet(f *excelize.File, devices []model.DeviceRecord) error {
	rows := make([][]any, 0, len(devices)+1)
	rows = append(rows, toAnyRow(deviceHeaders))
	for _, d := range devices {
		rows = append(rows, []any{
			d.Network, d.Name, d.Serial, d.Model, d.MAC, d.Firmware, d.LANIP,
			strings.Join(d.Tags, " "), d.Status, d.LastReportedAt, d.Uptime,
		})
	}
	return writeRows(f, SheetDevices, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toAnyRow(headers []string) []any {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}
