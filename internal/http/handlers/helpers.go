package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/utils"
	"barmetrics-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errMissingParam = errors.New("missing param")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors flattens validator output to json field -> failed rule.
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func readQueryInt64(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, errMissingParam
	}
	return strconv.ParseInt(value, 10, 64)
}

// readBarID returns the bar_id query parameter or writes a 400.
func readBarID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	barID, err := readQueryInt64(r, "bar_id")
	if err != nil || barID <= 0 {
		response.ValidationError(w, "bar_id is required", map[string]string{"bar_id": "required"})
		return 0, false
	}
	return barID, true
}

// defaultWindow fills an absent range with the last 30 days in the bar's
// timezone.
func (h *Handler) defaultWindow(start, end string) (string, string) {
	tz := h.Config.Timezone
	if strings.TrimSpace(end) == "" {
		end = utils.CurrentDateInTimezone(tz)
	}
	if strings.TrimSpace(start) == "" {
		start = utils.DateDaysAgoInTimezone(tz, 29)
	}
	return start, end
}

func parseWindow(start, end string) (reconcile.Window, map[string]string) {
	fields := map[string]string{}
	s, err := reconcile.ParseDay(start)
	if err != nil {
		fields["data_inicio"] = "date"
	}
	e, err := reconcile.ParseDay(end)
	if err != nil {
		fields["data_fim"] = "date"
	}
	if len(fields) > 0 {
		return reconcile.Window{}, fields
	}
	window := reconcile.Window{Start: s, End: e}
	if !window.Valid() {
		return reconcile.Window{}, map[string]string{"data_fim": "gtefield"}
	}
	return window, nil
}
