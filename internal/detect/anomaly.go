package detect

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finsight-dev/finsight/internal/config"
	"github.com/finsight-dev/finsight/internal/model"
)

// Categories need at least this many samples before outlier scoring says
// anything meaningful.
const minCategorySamples = 5

// Consistency constant that makes the MAD comparable to a standard
// deviation under a normal distribution.
var madScale = decimal.RequireFromString("1.4826")

// Anomalies flags transactions whose magnitude is a robust outlier within
// their category, plus transactions that break a detected recurring series'
// amount expectation. Median and MAD are used instead of mean and standard
// deviation so a single large outlier cannot mask itself.
func Anomalies(txns []model.Transaction, series []model.RecurringSeries, cfg config.DetectionConfig) []model.Anomaly {
	anomalies := categoryOutliers(txns, cfg)
	anomalies = append(anomalies, seriesBreaks(txns, series)...)

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].TransactionID != anomalies[j].TransactionID {
			return anomalies[i].TransactionID < anomalies[j].TransactionID
		}
		return anomalies[i].Reason < anomalies[j].Reason
	})
	return anomalies
}

func categoryOutliers(txns []model.Transaction, cfg config.DetectionConfig) []model.Anomaly {
	byCategory := make(map[string][]model.Transaction)
	for _, t := range txns {
		if !t.Categorized() || t.IsTransfer() {
			continue
		}
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	multiplier := decimal.NewFromFloat(cfg.MADMultiplier)
	var out []model.Anomaly
	for category, group := range byCategory {
		if len(group) < minCategorySamples {
			continue
		}
		magnitudes := make([]decimal.Decimal, len(group))
		for i, t := range group {
			magnitudes[i] = t.Magnitude()
		}
		med := median(magnitudes)
		scale := mad(magnitudes).Mul(madScale)
		if scale.IsZero() {
			// A flat distribution has no spread to score against; fall back
			// to a tenth of the median so gross outliers still surface.
			scale = med.Mul(decimal.RequireFromString("0.1"))
		}
		if scale.IsZero() {
			continue
		}

		for _, t := range group {
			score := t.Magnitude().Sub(med).Abs().DivRound(scale, 4)
			if score.GreaterThanOrEqual(multiplier) {
				out = append(out, model.Anomaly{
					TransactionID: t.ID,
					Category:      category,
					Reason:        model.AnomalyCategoryOutlier,
					Score:         score,
				})
			}
		}
	}
	return out
}

// seriesBreaks flags series members whose amount falls outside the series'
// expected range.
func seriesBreaks(txns []model.Transaction, series []model.RecurringSeries) []model.Anomaly {
	bySeries := make(map[string]model.RecurringSeries, len(series))
	memberOf := make(map[string]string)
	for _, s := range series {
		bySeries[s.Key()] = s
		for _, id := range s.TransactionIDs {
			memberOf[id] = s.Key()
		}
	}

	var out []model.Anomaly
	for _, t := range txns {
		seriesKey, ok := memberOf[t.ID]
		if !ok {
			// A new transaction from a tracked merchant that was not folded
			// into the series still gets checked against expectations.
			s, tracked := bySeries[seriesCandidateKey(t)]
			if !tracked {
				continue
			}
			seriesKey = s.Key()
		}
		s := bySeries[seriesKey]
		if s.AmountWithinExpectation(t.Magnitude()) {
			continue
		}
		out = append(out, model.Anomaly{
			TransactionID: t.ID,
			Category:      t.Category,
			Reason:        model.AnomalySeriesAmount,
			SeriesKey:     seriesKey,
		})
	}
	return out
}

func seriesCandidateKey(t model.Transaction) string {
	s := model.RecurringSeries{MerchantToken: t.MerchantToken, Negative: t.Amount.IsNegative()}
	return s.Key()
}

func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).DivRound(decimal.NewFromInt(2), 6)
}

// mad returns the median absolute deviation from the median.
func mad(values []decimal.Decimal) decimal.Decimal {
	med := median(values)
	devs := make([]decimal.Decimal, len(values))
	for i, v := range values {
		devs[i] = v.Sub(med).Abs()
	}
	return median(devs)
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
