package infra

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	hojaSesiones = "sesiones"
	hojaResumen  = "resumen"
)

var columnasHistorial = []interface{}{
	"Sesión", "Operador", "Apertura", "Cierre", "Estado", "Fondo inicial", "Saldo efectivo",
	"Esperado", "Declarado", "Diferencia", "Desvío %", "Clasificación", "Observaciones",
}

// BuildHistorialXLSX renders a session list as a workbook with one row per
// session plus a summary sheet.
func BuildHistorialXLSX(sesiones []model.SesionCaja) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", hojaSesiones); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(hojaResumen); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(hojaSesiones, "A1", &columnasHistorial); err != nil {
		return nil, err
	}

	abiertas := 0
	sobrantes, faltantes := decimal.Zero, decimal.Zero
	for i, s := range sesiones {
		if s.Abierta() {
			abiertas++
		}
		if s.Desvio != nil {
			if s.Desvio.IsPositive() {
				sobrantes = sobrantes.Add(*s.Desvio)
			} else {
				faltantes = faltantes.Add(s.Desvio.Abs())
			}
		}
		fila := []interface{}{
			s.ID.String(),
			s.UsuarioNombre,
			s.OpenedAt.Format(time.DateTime),
			fechaOpcional(s.ClosedAt),
			string(s.Estado),
			s.MontoInicial.InexactFloat64(),
			s.SaldoActual.InexactFloat64(),
			decimalOpcional(s.MontoEsperado),
			decimalOpcional(s.MontoDeclarado),
			decimalOpcional(s.Desvio),
			decimalOpcional(s.DesvioPct),
			clasificacionOpcional(s.ClasificacionDesvio),
			textoOpcional(s.Observaciones),
		}
		if err := f.SetSheetRow(hojaSesiones, fmt.Sprintf("A%d", i+2), &fila); err != nil {
			return nil, err
		}
	}

	_ = f.SetCellValue(hojaResumen, "A1", "Historial de cajas")
	_ = f.SetCellValue(hojaResumen, "A3", "Sesiones")
	_ = f.SetCellValue(hojaResumen, "B3", len(sesiones))
	_ = f.SetCellValue(hojaResumen, "A4", "Abiertas")
	_ = f.SetCellValue(hojaResumen, "B4", abiertas)
	_ = f.SetCellValue(hojaResumen, "A5", "Total sobrantes")
	_ = f.SetCellValue(hojaResumen, "B5", sobrantes.InexactFloat64())
	_ = f.SetCellValue(hojaResumen, "A6", "Total faltantes")
	_ = f.SetCellValue(hojaResumen, "B6", faltantes.InexactFloat64())

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fechaOpcional(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format(time.DateTime)
}

func decimalOpcional(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func clasificacionOpcional(c *model.ClasificacionDesvio) string {
	if c == nil {
		return ""
	}
	return string(*c)
}

func textoOpcional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
