package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

func testResult() *model.AuditResult {
	return &model.AuditResult{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		OrgID:     "549236",
		FilteredClients: []model.ClientRecord{
			{Network: "HQ", MAC: "50:a4:d0:11:22:33", IP: "10.0.0.5", Manufacturer: "Dell Inc.", VLAN: 10, LastSeen: "2024-05-01T11:58:00Z"},
		},
		AccessPorts: []model.AccessPortRecord{
			{Network: "HQ", SwitchName: "hq-sw-1", SwitchSerial: "Q2SW-AAAA-0001", SwitchModel: "MS225-48LP", PortID: "1", VLAN: 10, PoEEnabled: true},
		},
		DeviceInventory: []model.DeviceRecord{
			{Network: "HQ", Name: "hq-sw-1", Serial: "Q2SW-AAAA-0001", Model: "MS225-48LP", Firmware: "ms-15.21", Tags: []string{"prod", "east"}, Status: "online"},
		},
	}
}

func TestWriteJSON_Shape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}

	// The document keys match the artifact the original tooling produced.
	for _, key := range []string{"timestamp", "filtered_clients", "vlan_access_ports", "device_inventory"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q in JSON document", key)
		}
	}
}

func TestWriteJSONFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meraki_audit_results.json")

	if err := WriteJSONFile(path, testResult()); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var result model.AuditResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.OrgID != "549236" {
		t.Errorf("OrgID = %s, want 549236", result.OrgID)
	}

	// No temp files may remain.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in dir, found %d entries", len(entries))
	}
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, testResult()); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{SheetClients, SheetPorts, SheetDevices} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	// Header row plus one data row on the clients sheet.
	rows, err := f.GetRows(SheetClients)
	if err != nil {
		t.Fatalf("read clients sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("clients sheet rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "Network" {
		t.Errorf("header cell = %q, want Network", rows[0][0])
	}
	if rows[1][2] != "50:a4:d0:11:22:33" {
		t.Errorf("client MAC cell = %q", rows[1][2])
	}
}

func TestWriteWorkbookFile_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.xlsx")

	empty := &model.AuditResult{Timestamp: time.Now()}
	if err := WriteWorkbookFile(path, empty); err != nil {
		t.Fatalf("WriteWorkbookFile: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetDevices)
	if err != nil {
		t.Fatalf("read devices sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("empty result should still write headers, got %d rows", len(rows))
	}
}
