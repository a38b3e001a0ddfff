// Package printer generates the PDFs staff print from the dashboard: kitchen
// tickets for orders and QR pairing sheets for provisioning kiosk devices.
package printer

import (
	"bytes"
	"fmt"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// OrderTicketPDF renders a kitchen ticket for an order: room code, line
// items with quantity and unit label, and a QR code of the order id for
// scanning at delivery.
func OrderTicketPDF(order *models.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(8, 8, 8)
	pdf.SetAutoPageBreak(true, 8)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "ROOM SERVICE", "", 1, "C", false, 0, "")

	roomCode := "-"
	if order.Room != nil {
		roomCode = order.Room.Code
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, fmt.Sprintf("Room %s", roomCode), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Order #%d", order.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, order.PlacedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 11)
	for _, item := range order.Items {
		name := item.Product.Name
		if name == "" {
			name = fmt.Sprintf("product %d", item.ProductID)
		}
		line := fmt.Sprintf("%d x %s (%s)", item.Quantity, name, item.UnitLabel)
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	qrPng, err := qrcode.Encode(fmt.Sprintf("ORDER:%d", order.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("order_qr", opts, bytes.NewReader(qrPng))

	pageW, _ := pdf.GetPageSize()
	qrSize := 28.0
	pdf.ImageOptions("order_qr", (pageW-qrSize)/2, pdf.GetY(), qrSize, qrSize, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LabelConfig controls the pairing sheet grid layout
type LabelConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"margin_top"`
	MarginLeft float64 `json:"margin_left"`
	GapX       float64 `json:"gap_x"`
	GapY       float64 `json:"gap_y"`
}

// PairingLabelsPDF creates an A4 sheet of QR labels, one per device, each
// encoding the kiosk URL with the device UID. Sticking a label on an iPad
// stand and scanning it pairs the kiosk to that device record.
func PairingLabelsPDF(devices []models.Device, baseURL string, cfg LabelConfig) ([]byte, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices to print")
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 3
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 7
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(cfg.Cols-1) * cfg.GapX
	totalGapY := float64(cfg.Rows-1) * cfg.GapY
	availW := pageWidth - (cfg.MarginLeft * 2)
	availH := pageHeight - (cfg.MarginTop * 2)
	labelW := (availW - totalGapX) / float64(cfg.Cols)
	labelH := (availH - totalGapY) / float64(cfg.Rows)

	labelsPerPage := cfg.Cols * cfg.Rows

	for i, device := range devices {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		indexOnPage := i % labelsPerPage
		col := indexOnPage % cfg.Cols
		row := indexOnPage / cfg.Cols

		x := cfg.MarginLeft + float64(col)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(row)*(labelH+cfg.GapY)

		qrContent := fmt.Sprintf("%s/kiosk?device_uid=%s", baseURL, device.DeviceUID)
		qrPng, err := qrcode.Encode(qrContent, qrcode.Low, 256)
		if err != nil {
			return nil, err
		}

		imgName := fmt.Sprintf("qr_%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(qrPng))

		qrSize := labelH * 0.7
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		qrY := y + (labelH-qrSize)/2 - 2

		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, opts, 0, "")

		pdf.SetXY(x, y+labelH-6)
		pdf.SetFontSize(8)
		pdf.CellFormat(labelW, 5, device.DeviceUID, "", 0, "C", false, 0, "")

		pdf.SetXY(x, y+1)
		pdf.SetFontSize(6)
		pdf.CellFormat(labelW, 3, string(device.DeviceType), "", 0, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
