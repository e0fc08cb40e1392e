package handlers

import (
	"bytes"
	"fmt"
	"strings"

	"barmetrics-service/internal/evolution"
	"barmetrics-service/internal/reconcile"

	"github.com/phpdave11/gofpdf"
)

var metricTitles = map[reconcile.Metric]string{
	reconcile.MetricRevenue:      "Faturamento",
	reconcile.MetricAttendance:   "Clientes",
	reconcile.MetricTicket:       "Ticket medio",
	reconcile.MetricReservations: "Reservas",
	reconcile.MetricKitchenTime:  "Tempo de cozinha",
	reconcile.MetricBarTime:      "Tempo de bar",
}

func formatMetricValue(metric reconcile.Metric, value float64) string {
	switch metric {
	case reconcile.MetricRevenue, reconcile.MetricTicket:
		return formatBRL(value)
	case reconcile.MetricKitchenTime, reconcile.MetricBarTime:
		total := int(value + 0.5)
		return fmt.Sprintf("%d:%02d", total/60, total%60)
	default:
		return fmt.Sprintf("%.0f", value)
	}
}

// formatBRL renders 1234.5 as "R$ 1.234,50".
func formatBRL(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	raw := fmt.Sprintf("%.2f", value)
	intPart, frac := raw[:len(raw)-3], raw[len(raw)-2:]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}
	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), frac)
}

func renderEvolutionPDF(barID int64, data evolution.Payload) (*bytes.Buffer, error) {
	title := metricTitles[data.Metric]
	if title == "" {
		title = string(data.Metric)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Evolucao - %s", title), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, fmt.Sprintf("Bar %d", barID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Periodo: %s a %s", data.Effective.Start, data.Effective.End), "", 1, "L", false, 0, "")
	if data.Clamped {
		pdf.CellFormat(0, 5, fmt.Sprintf("Inicio ajustado de %s (sem dados anteriores)", data.Requested.Start), "", 1, "L", false, 0, "")
	}
	if data.Target != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Meta: %s", formatMetricValue(data.Metric, *data.Target)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(50, 7, "Data", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 7, "Valor", "1", 0, "R", true, 0, "")
	pdf.CellFormat(60, 7, "Meta", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	total := 0.0
	for _, point := range data.Points {
		target := "-"
		if point.Target != nil {
			target = formatMetricValue(data.Metric, *point.Target)
		}
		pdf.CellFormat(50, 6, string(point.Date), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, formatMetricValue(data.Metric, point.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, target, "1", 1, "R", false, 0, "")
		total += point.Value
	}
	if len(data.Points) == 0 {
		pdf.CellFormat(170, 6, "Sem dados no periodo", "1", 1, "C", false, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(50, 6, "Media diaria", "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, formatMetricValue(data.Metric, total/float64(len(data.Points))), "1", 0, "R", false, 0, "")
		pdf.CellFormat(60, 6, "", "1", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 4, fmt.Sprintf("Calculo: %s", data.Path), "", 1, "L", false, 0, "")
	if len(data.SourceFailures) > 0 {
		names := make([]string, 0, len(data.SourceFailures))
		for _, kind := range data.SourceFailures {
			names = append(names, string(kind))
		}
		pdf.MultiCell(0, 4, fmt.Sprintf("Fontes indisponiveis: %s. Os valores podem estar incompletos.", strings.Join(names, ", ")), "", "L", false)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
