package evolution

import "barmetrics-service/internal/reconcile"

// Payload is the wire shape of a series shared by the HTTP and websocket
// endpoints.
type Payload struct {
	Metric         reconcile.Metric       `json:"metrica"`
	Requested      reconcile.Window       `json:"periodo_solicitado"`
	Effective      reconcile.Window       `json:"periodo_efetivo"`
	Clamped        bool                   `json:"ajustado"`
	Path           Path                   `json:"caminho"`
	Target         *float64               `json:"meta"`
	Points         []reconcile.Point      `json:"pontos"`
	SourceFailures []reconcile.SourceKind `json:"fontes_com_falha"`
	Cached         bool                   `json:"em_cache"`
}

func (r Result) Payload() Payload {
	points := r.Series.Points
	if points == nil {
		points = []reconcile.Point{}
	}
	failures := r.SourceFailures
	if failures == nil {
		failures = []reconcile.SourceKind{}
	}
	return Payload{
		Metric:         r.Series.Metric,
		Requested:      r.Period.Requested,
		Effective:      r.Period.Effective,
		Clamped:        r.Period.Clamped,
		Path:           r.Path,
		Target:         r.Series.Target,
		Points:         points,
		SourceFailures: failures,
		Cached:         r.Cached,
	}
}
