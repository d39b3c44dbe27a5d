// Package workorder reads work order spreadsheets and produces the two
// published resources: the number line and the details fragment.
package workorder

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"workorder-board/internal/types"
)

var (
	// ErrNoNumber is returned when the work order number cell is empty
	ErrNoNumber = errors.New("work order number is empty")
	// ErrUnreadable is returned when the workbook cannot be opened
	ErrUnreadable = errors.New("workbook unreadable")
)

// Cell addresses on the active sheet
const (
	CellNumber           = "C6"
	CellDate             = "E6"
	CellPartner          = "B7"
	CellDevice           = "B12"
	CellSerialNumber     = "E12"
	CellDeviceCode       = "B13"
	CellFaultDescription = "B16"
	CellWorkDescription  = "A19"
)

// Open retry settings for files still held by the program that saved them
var (
	openAttempts = 5
	openWait     = time.Second
)

// IsSpreadsheet reports whether path names an .xlsx file
func IsSpreadsheet(path string) bool {
	name := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(name), ".xlsx") && !strings.HasPrefix(name, "~$")
}

// Parse reads a work order from the active sheet of an .xlsx file
func Parse(path string) (types.WorkOrder, error) {
	f, err := openWithRetry(path)
	if err != nil {
		return types.WorkOrder{}, err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	cell := func(axis string) (string, error) {
		v, err := f.GetCellValue(sheet, axis)
		if err != nil {
			return "", fmt.Errorf("failed to read %s!%s: %w", sheet, axis, err)
		}
		return strings.TrimSpace(v), nil
	}

	order := types.WorkOrder{SourceFile: path}
	fields := []struct {
		axis string
		dst  *string
	}{
		{CellNumber, &order.Number},
		{CellPartner, &order.Partner},
		{CellDevice, &order.Device},
		{CellSerialNumber, &order.SerialNumber},
		{CellDeviceCode, &order.DeviceCode},
		{CellFaultDescription, &order.FaultDescription},
		{CellWorkDescription, &order.WorkDescription},
	}
	for _, fld := range fields {
		if *fld.dst, err = cell(fld.axis); err != nil {
			return types.WorkOrder{}, err
		}
	}

	// Raw value so date cells come back as serials rather than in the
	// workbook's display format
	rawDate, err := f.GetCellValue(sheet, CellDate, excelize.Options{RawCellValue: true})
	if err != nil {
		return types.WorkOrder{}, fmt.Errorf("failed to read %s!%s: %w", sheet, CellDate, err)
	}
	order.Date = FormatDate(rawDate)

	if order.Number == "" {
		return order, fmt.Errorf("%s: %w", path, ErrNoNumber)
	}
	return order, nil
}

func openWithRetry(path string) (*excelize.File, error) {
	var lastErr error
	for i := 0; i < openAttempts; i++ {
		f, err := excelize.OpenFile(path)
		if err == nil {
			return f, nil
		}
		lastErr = err
		if !errors.Is(err, fs.ErrPermission) {
			break
		}
		logrus.WithFields(logrus.Fields{
			"file":    path,
			"attempt": i + 1,
			"of":      openAttempts,
		}).Warn("File locked, retrying")
		time.Sleep(openWait * time.Duration(i+1))
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, lastErr)
}
