package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateCierrePDF renders the closing report of a session on an 80 mm
// thermal-roll page and writes it to storagePath/cierre_{sesion}.pdf.
// Returns the path of the generated file.
func GenerateCierrePDF(rep *model.ReporteArqueo, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", rep.SesionCajaID))

	// Height grows with the number of rows so the roll never breaks a page.
	rows := len(rep.VentasPorMetodo) + len(rep.VentasPorItem) + len(rep.Sangrias)
	height := 150 + float64(rows)*5

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.62
	valueW := contentW - labelW

	line := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(2)
	}
	row := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 4.5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 4.5, "$"+v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
	}

	// ── Header ───────────────────────────────────────────────────────────────
	titulo := "CIERRE DE CAJA"
	if rep.Parcial {
		titulo = "REPORTE PARCIAL"
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, titulo, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, tr("Operador: "+rep.UsuarioNombre), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Apertura: "+rep.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if rep.ClosedAt != nil {
		pdf.CellFormat(contentW, 4, "Cierre:   "+rep.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	line()

	// ── Cash ─────────────────────────────────────────────────────────────────
	section("Efectivo")
	row("Fondo inicial", rep.MontoInicial)
	row("Ventas en efectivo", rep.VentasEfectivo)
	row("Suprimentos", rep.TotalSuprimentos)
	row("Sangrías", rep.TotalSangrias.Neg())
	pdf.SetFont("Helvetica", "B", 7)
	row("Esperado efectivo", rep.EsperadoEfectivo)
	row("Esperado otros medios", rep.EsperadoNoEfectivo)
	line()

	// ── Tender breakdown ─────────────────────────────────────────────────────
	section(fmt.Sprintf("Ventas por medio (%d ventas)", rep.CantidadVentas))
	for _, t := range rep.VentasPorMetodo {
		row(fmt.Sprintf("%s (%d)", t.Metodo, t.Cantidad), t.Monto)
	}
	if len(rep.VentasPorItem) > 0 {
		line()
		section("Ventas por producto")
		for _, it := range rep.VentasPorItem {
			nombre := it.Nombre
			if len(nombre) > 24 {
				nombre = nombre[:23] + "."
			}
			row(fmt.Sprintf("%s x%d", nombre, it.Cantidad), it.Monto)
		}
	}
	if len(rep.Sangrias) > 0 {
		line()
		section("Sangrías")
		for _, s := range rep.Sangrias {
			row(s.Fecha.Format("15:04")+" "+s.Descripcion, s.Monto)
		}
	}

	// ── Counted vs expected ──────────────────────────────────────────────────
	if rep.Diferencia != nil {
		line()
		section("Arqueo")
		if rep.DeclaradoEfectivo != nil {
			row("Contado efectivo", *rep.DeclaradoEfectivo)
		}
		if rep.DeclaradoNoEfectivo != nil {
			row("Contado otros medios", *rep.DeclaradoNoEfectivo)
		}
		pdf.SetFont("Helvetica", "B", 9)
		row(fmt.Sprintf("Diferencia (%s)", rep.Diferencia.Sentido), rep.Diferencia.Monto)
		pdf.SetFont("Helvetica", "", 7)
		desvio := fmt.Sprintf("Desvío %s%% - %s", rep.Diferencia.Porcentaje.StringFixed(2), rep.Diferencia.Clasificacion)
		pdf.CellFormat(contentW, 4, tr(desvio), "", 1, "L", false, 0, "")
		if rep.Observaciones != nil && *rep.Observaciones != "" {
			pdf.MultiCell(contentW, 4, tr("Obs: "+*rep.Observaciones), "", "L", false)
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
