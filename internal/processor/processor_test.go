package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"workorder-board/internal/publish"
	"workorder-board/internal/types"
	"workorder-board/internal/workorder"
	"workorder-board/pkg/config"
)

type memPublisher struct {
	mu      sync.Mutex
	files   map[string][]byte
	current string
	readErr error
	pubErr  error
}

func (m *memPublisher) Name() string { return "mem" }

func (m *memPublisher) Publish(_ context.Context, files []publish.File) error {
	if m.pubErr != nil {
		return m.pubErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	for _, f := range files {
		m.files[f.Name] = f.Data
	}
	return nil
}

func (m *memPublisher) CurrentNumber(context.Context, string) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.current, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	info     []string
	success  []types.WorkOrder
	failures []error
}

func (n *recordingNotifier) Info(_ context.Context, text string) {
	n.mu.Lock()
	n.info = append(n.info, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) Success(_ context.Context, order types.WorkOrder) {
	n.mu.Lock()
	n.success = append(n.success, order)
	n.mu.Unlock()
}

func (n *recordingNotifier) Failure(_ context.Context, _ string, err error) {
	n.mu.Lock()
	n.failures = append(n.failures, err)
	n.mu.Unlock()
}

type memRecorder struct {
	orders []types.ProcessedOrder
}

func (r *memRecorder) Record(_ context.Context, order types.ProcessedOrder) error {
	r.orders = append(r.orders, order)
	return nil
}

func writeOrder(t *testing.T, number string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	cells := map[string]any{
		workorder.CellNumber:       number,
		workorder.CellDate:         "7.11.2025",
		workorder.CellPartner:      "Rijeka <Sušak>",
		workorder.CellDevice:       "CT Motion",
		workorder.CellSerialNumber: "CTM2426941",
	}
	for axis, v := range cells {
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			t.Fatalf("Failed to set %s: %v", axis, err)
		}
	}

	path := filepath.Join(t.TempDir(), "RN "+strings.ReplaceAll(number, "/", " ")+".xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

func TestProcessPublishesBothResources(t *testing.T) {
	pub := &memPublisher{current: "0174/2025        06.11.2025.\n"}
	notifier := &recordingNotifier{}
	recorder := &memRecorder{}
	logDir := t.TempDir()
	fixed := time.Date(2025, 11, 7, 9, 30, 0, 0, time.UTC)

	var refreshed []string
	p := New(pub,
		WithNotifier(notifier),
		WithRecorder(recorder),
		WithLedger(NewLedger(logDir)),
		WithClock(func() time.Time { return fixed }),
		OnPublished(func(o types.ProcessedOrder) { refreshed = append(refreshed, o.Number) }),
	)

	order, err := p.Process(context.Background(), writeOrder(t, "175/2025"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	wantLine := "0175/2025        07.11.2025."
	if order.NumberLine != wantLine {
		t.Errorf("Expected line %q, got %q", wantLine, order.NumberLine)
	}
	if got := string(pub.files[config.DataFile]); got != wantLine+"\n" {
		t.Errorf("Unexpected %s: %q", config.DataFile, got)
	}
	details := string(pub.files[config.DetailsFile])
	if !strings.Contains(details, "Rijeka &lt;Sušak&gt;") {
		t.Errorf("Details should contain escaped partner, got %s", details)
	}

	if len(notifier.success) != 1 || len(notifier.info) != 0 {
		t.Errorf("Expected one success and no info, got %d / %d", len(notifier.success), len(notifier.info))
	}
	if len(recorder.orders) != 1 || !recorder.orders[0].ProcessedAt.Equal(fixed) {
		t.Errorf("Unexpected history %+v", recorder.orders)
	}
	if len(refreshed) != 1 || refreshed[0] != "175/2025" {
		t.Errorf("Expected one refresh, got %v", refreshed)
	}

	data, err := os.ReadFile(filepath.Join(logDir, "log_11_2025.txt"))
	if err != nil {
		t.Fatalf("Ledger not written: %v", err)
	}
	if !strings.Contains(string(data), "RN: 175/2025, Date: 07.11.2025.") {
		t.Errorf("Unexpected ledger line %q", data)
	}
}

func TestProcessWarnsOnStaleNumber(t *testing.T) {
	pub := &memPublisher{current: "0180/2025        06.11.2025."}
	notifier := &recordingNotifier{}
	p := New(pub, WithNotifier(notifier))

	if _, err := p.Process(context.Background(), writeOrder(t, "175/2025")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(notifier.info) != 1 || !strings.Contains(notifier.info[0], "0175") {
		t.Errorf("Expected a warning about 0175, got %v", notifier.info)
	}
	if _, ok := pub.files[config.DataFile]; !ok {
		t.Error("Stale numbers are still published")
	}
}

func TestProcessFirstPublish(t *testing.T) {
	pub := &memPublisher{readErr: publish.ErrNotPublished}
	notifier := &recordingNotifier{}
	p := New(pub, WithNotifier(notifier))

	if _, err := p.Process(context.Background(), writeOrder(t, "1/2026")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(notifier.info) != 0 {
		t.Errorf("No warning expected on first publish, got %v", notifier.info)
	}
}

func TestProcessReportsFailures(t *testing.T) {
	notifier := &recordingNotifier{}

	p := New(&memPublisher{}, WithNotifier(notifier))
	missing := filepath.Join(t.TempDir(), "missing.xlsx")
	if _, err := p.Process(context.Background(), missing); err == nil {
		t.Error("Expected an error for a missing file")
	}

	pubErr := errors.New("server down")
	p = New(&memPublisher{pubErr: pubErr}, WithNotifier(notifier))
	if _, err := p.Process(context.Background(), writeOrder(t, "175/2025")); !errors.Is(err, pubErr) {
		t.Errorf("Expected publish error, got %v", err)
	}

	if len(notifier.failures) != 2 {
		t.Errorf("Expected two failure notifications, got %d", len(notifier.failures))
	}
	if len(notifier.success) != 0 {
		t.Error("No success expected")
	}
}

func TestLedgerPath(t *testing.T) {
	l := NewLedger("/var/log/board")
	got := l.Path(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if want := filepath.Join("/var/log/board", "log_03_2025.txt"); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
