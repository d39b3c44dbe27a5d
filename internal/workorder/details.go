package workorder

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"workorder-board/internal/types"
)

var detailsTemplate = template.Must(template.New("details").Parse(`
<div class="container mt-4">
  <h4>Detalji radnog naloga</h4>
  <table class="table table-striped mt-3">
    <tr>
        <th>Radni nalog</th>
        <td>{{.Number}} <button class="copy-btn" onclick="copyToClipboard('{{.Number}}')">📋</button></td>
    </tr>
    <tr><th>Partner</th><td>{{.Partner}}</td></tr>
    <tr><th>Aparat</th><td>{{.Device}}</td></tr>
    <tr><th>Serijski broj</th><td>{{.SerialNumber}}</td></tr>
    <tr><th>Šifra aparata</th><td>{{.DeviceCode}}</td></tr>
    <tr><th>Opis pogreške</th><td>{{.FaultDescription}}</td></tr>
    <tr><th>Opis obavljenog posla</th><td>{{.WorkDescription}}</td></tr>
    <tr>
        <th>Datum</th>
        <td>{{.Date}} <button class="copy-btn" onclick="copyToClipboard('{{.Date}}')">📋</button></td>
    </tr>
  </table>
</div>
`))

// RenderDetails writes the details fragment for an order. Field values are
// escaped.
func RenderDetails(w io.Writer, order types.WorkOrder) error {
	if err := detailsTemplate.Execute(w, order); err != nil {
		return fmt.Errorf("render details: %w", err)
	}
	return nil
}

// DetailsHTML returns the details fragment for an order
func DetailsHTML(order types.WorkOrder) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderDetails(&buf, order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
