package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/Caiocr8/sistema-pedidos-sub000/internal/apierror"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/infra"
	"github.com/Caiocr8/sistema-pedidos-sub000/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags. On failure
// it writes the response and returns false; the caller returns immediately.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, "JSON invalido: "+err.Error()))
		return false
	}
	return runValidator(c, req)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, "Parametros invalidos: "+err.Error()))
		return false
	}
	return runValidator(c, req)
}

func runValidator(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

// uuidParam parses a path parameter, answering 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors onto HTTP. Transient failures are marked
// retryable with a Retry-After hint; business refusals are not.
func respondError(c *gin.Context, err error) {
	var verr *model.ValidacionError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, &apierror.ValidationError{
			Code:   apierror.CodeValidacion,
			Detail: verr.Error(),
			Fields: map[string]string{verr.Campo: verr.Mensaje},
		})
	case errors.Is(err, model.ErrValidacion):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.CodeValidacion, err.Error()))
	case errors.Is(err, model.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNoEncontrado, err.Error()))
	case errors.Is(err, model.ErrSesionYaAbierta):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSesionYaAbierta, "El operador ya tiene una caja abierta"))
	case errors.Is(err, model.ErrSesionCerrada):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSesionCerrada, "La sesion de caja esta cerrada"))
	case errors.Is(err, model.ErrFondosInsuficientes):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.CodeFondosInsuficientes, "Saldo en efectivo insuficiente"))
	case errors.Is(err, model.ErrVentaYaPagada):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeVentaYaPagada, "La venta ya fue pagada"))
	case errors.Is(err, model.ErrVentaDuplicada):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeVentaDuplicada, "Ya existe una venta con ese id"))
	case errors.Is(err, model.ErrVentaAnulada):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeVentaAnulada, "La venta esta anulada"))
	case model.Transitorio(err), errors.Is(err, context.DeadlineExceeded):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, apierror.Retry(apierror.CodeConflicto, "Conflicto transitorio, reintente"))
	case errors.Is(err, infra.ErrEventosNoDisponibles):
		c.JSON(http.StatusServiceUnavailable, apierror.New(apierror.CodeNoDisponible, err.Error()))
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New(apierror.CodeInterno, "Error interno del servidor"))
	}
}
