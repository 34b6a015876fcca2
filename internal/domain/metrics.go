package domain

import "sort"

// Metric names stored on assessment records.
const (
	MetricACLRSI        = "ACL_RSI"
	MetricLEFS          = "LEFS"
	MetricQuadLSI       = "KE_LSI"
	MetricHamstringLSI  = "KF_LSI"
	MetricQuadTTBWInv   = "KE_TTBW_Inv"
	MetricQuadTTBWUninv = "KE_TTBW_Uninv"
	MetricHopSingleLSI  = "Hop_Single_LSI"
	MetricHopTripleLSI  = "Hop_Triple_LSI"
	MetricHop6mLSI      = "Hop_6m_LSI"
	MetricYBalanceDiff  = "Y_Bal_Diff"
	MetricSquatAsym     = "Squat_Asym"
	MetricCMJAsym       = "CMJ_Asym"
	MetricBodyWeight    = "Body_Weight_Lbs"
)

// MetricDefinition describes one named metric.
type MetricDefinition struct {
	Name           string         `json:"name"`
	Label          string         `json:"label"`
	Unit           string         `json:"unit"`
	Directionality Directionality `json:"directionality"`
}

var metricRegistry = map[string]MetricDefinition{
	MetricACLRSI:        {MetricACLRSI, "ACL-RSI (psychological readiness)", "score", HigherIsBetter},
	MetricLEFS:          {MetricLEFS, "Lower Extremity Functional Scale", "score", HigherIsBetter},
	MetricQuadLSI:       {MetricQuadLSI, "Quadriceps LSI", "%", HigherIsBetter},
	MetricHamstringLSI:  {MetricHamstringLSI, "Hamstring LSI", "%", HigherIsBetter},
	MetricQuadTTBWInv:   {MetricQuadTTBWInv, "Quadriceps TTBW, involved", "Nm/kg", HigherIsBetter},
	MetricQuadTTBWUninv: {MetricQuadTTBWUninv, "Quadriceps TTBW, uninvolved", "Nm/kg", HigherIsBetter},
	MetricHopSingleLSI:  {MetricHopSingleLSI, "Single hop for distance LSI", "%", HigherIsBetter},
	MetricHopTripleLSI:  {MetricHopTripleLSI, "Triple hop for distance LSI", "%", HigherIsBetter},
	MetricHop6mLSI:      {MetricHop6mLSI, "6 m timed hop LSI", "%", HigherIsBetter},
	MetricYBalanceDiff:  {MetricYBalanceDiff, "Y-balance anterior reach difference", "cm", LowerIsBetter},
	MetricSquatAsym:     {MetricSquatAsym, "Squat asymmetry", "%", LowerIsBetter},
	MetricCMJAsym:       {MetricCMJAsym, "CMJ landing asymmetry", "%", LowerIsBetter},
	MetricBodyWeight:    {MetricBodyWeight, "Body weight", "lb", HigherIsBetter},
}

// LookupMetric returns the definition for a registered metric name.
func LookupMetric(name string) (MetricDefinition, bool) {
	def, ok := metricRegistry[name]
	return def, ok
}

// MetricNames returns all registered metric names, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metricRegistry))
	for name := range metricRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
