package handlers

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
)

// Metrics exposes every registered series.
func Metrics(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// filterByLabel keeps families without the label untouched and, for families
// carrying it, only the series whose label equals value.
func filterByLabel(families []*dto.MetricFamily, label, value string) []*dto.MetricFamily {
	filtered := make([]*dto.MetricFamily, 0, len(families))
	for _, mf := range families {
		hasLabel := false
		var kept []*dto.Metric
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() != label {
					continue
				}
				hasLabel = true
				if l.GetValue() == value {
					kept = append(kept, m)
				}
				break
			}
		}

		if !hasLabel {
			filtered = append(filtered, mf)
			continue
		}
		if len(kept) == 0 {
			continue
		}
		filtered = append(filtered, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: kept,
		})
	}
	return filtered
}

// ReportMetrics serves only the series labelled with one report's slug, in
// the Prometheus text format.
func ReportMetrics(store *dbpkg.Store, gatherer prometheus.Gatherer, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		r, err := store.FindReport(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		writeFilteredMetrics(ctx, gatherer, r.Slug)
	}
}

func writeFilteredMetrics(ctx *fasthttp.RequestCtx, gatherer prometheus.Gatherer, slug string) {
	metricFamilies, err := gatherer.Gather()
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("failed to gather metrics")
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, format)
	for _, mf := range filterByLabel(metricFamilies, "report", slug) {
		if err := encoder.Encode(mf); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to encode metrics")
			return
		}
	}

	ctx.SetContentType(string(format))
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(buf.Bytes())
}
