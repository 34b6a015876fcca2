package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/service"
)

// Tool names
const (
	ToolRegisterPatient  = "register_patient"
	ToolRecordAssessment = "record_assessment"
	ToolClassifyPhase    = "classify_phase"
	ToolMetricSeries     = "metric_series"
	ToolComputeLSI       = "compute_lsi"
	ToolComputeTTBW      = "compute_ttbw"
	ToolExportTimeline   = "export_timeline"
)

// RegisterPatientParams defines parameters for register_patient tool
type RegisterPatientParams struct {
	MRN         string `json:"mrn" jsonschema:"medical record number"`
	Name        string `json:"name" jsonschema:"patient name, Last, First"`
	SurgeryDate string `json:"surgery_date" jsonschema:"ACL reconstruction date, YYYY-MM-DD"`
}

// TrialSetParams holds repeated trials per limb.
type TrialSetParams struct {
	Uninvolved []float64 `json:"uninvolved,omitempty" jsonschema:"trials of the healthy limb"`
	Involved   []float64 `json:"involved,omitempty" jsonschema:"trials of the operated limb"`
}

func (p TrialSetParams) toDomain() domain.RawTrialSet {
	return domain.RawTrialSet{Uninvolved: p.Uninvolved, Involved: p.Involved}
}

// RecordAssessmentParams defines parameters for record_assessment tool
type RecordAssessmentParams struct {
	MRN           string         `json:"mrn" jsonschema:"medical record number"`
	VisitDate     string         `json:"visit_date" jsonschema:"visit date, YYYY-MM-DD"`
	WeeksPostOp   *int           `json:"weeks_post_op,omitempty" jsonschema:"override for weeks since surgery"`
	ACLRSI        *int           `json:"acl_rsi,omitempty" jsonschema:"ACL-RSI score 0-100"`
	LEFS          *int           `json:"lefs,omitempty" jsonschema:"LEFS score 0-80"`
	BodyWeightLbs float64        `json:"body_weight_lbs" jsonschema:"body weight in pounds"`
	MomentArmM    *float64       `json:"moment_arm_m,omitempty" jsonschema:"dynamometer lever arm in meters"`
	QuadForce     TrialSetParams `json:"quad_force,omitempty" jsonschema:"knee extension force trials in lbf"`
	HamForce      TrialSetParams `json:"hamstring_force,omitempty" jsonschema:"knee flexion force trials in lbf"`
	SingleHop     TrialSetParams `json:"single_hop,omitempty" jsonschema:"single hop distances in cm"`
	TripleHop     TrialSetParams `json:"triple_hop,omitempty" jsonschema:"triple hop distances in cm"`
	TimedHop      TrialSetParams `json:"timed_hop_6m,omitempty" jsonschema:"6 m timed hop in seconds"`
	YBalUninv     *float64       `json:"y_balance_uninvolved,omitempty" jsonschema:"Y-balance anterior reach, healthy limb, cm"`
	YBalInv       *float64       `json:"y_balance_involved,omitempty" jsonschema:"Y-balance anterior reach, operated limb, cm"`
	SquatAsym     *float64       `json:"squat_asymmetry,omitempty" jsonschema:"force plate squat asymmetry percent"`
	CMJAsym       *float64       `json:"cmj_asymmetry,omitempty" jsonschema:"CMJ landing asymmetry percent"`
	Notes         string         `json:"notes,omitempty"`
}

func (p *RecordAssessmentParams) toInput() (*domain.AssessmentInput, error) {
	visit, err := domain.ParseDate(p.VisitDate)
	if err != nil {
		return nil, domain.NewValidationError("visit_date", err.Error(), p.VisitDate)
	}
	return &domain.AssessmentInput{
		VisitDate:          visit,
		WeeksPostOp:        p.WeeksPostOp,
		ACLRSI:             p.ACLRSI,
		LEFS:               p.LEFS,
		BodyWeightLbs:      p.BodyWeightLbs,
		MomentArmM:         p.MomentArmM,
		QuadForce:          p.QuadForce.toDomain(),
		HamstringForce:     p.HamForce.toDomain(),
		SingleHop:          p.SingleHop.toDomain(),
		TripleHop:          p.TripleHop.toDomain(),
		TimedHop:           p.TimedHop.toDomain(),
		YBalanceUninvolved: p.YBalUninv,
		YBalanceInvolved:   p.YBalInv,
		SquatAsymmetry:     p.SquatAsym,
		CMJAsymmetry:       p.CMJAsym,
		Notes:              p.Notes,
	}, nil
}

// ClassifyPhaseParams defines parameters for classify_phase tool. With an MRN the patient's
// latest record is classified; otherwise the given metric values are.
type ClassifyPhaseParams struct {
	MRN     string              `json:"mrn,omitempty" jsonschema:"classify this patient's latest assessment"`
	Metrics map[string]*float64 `json:"metrics,omitempty" jsonschema:"metric values to classify without a patient"`
}

// MetricSeriesParams defines parameters for metric_series tool
type MetricSeriesParams struct {
	MRN    string `json:"mrn" jsonschema:"medical record number"`
	Metric string `json:"metric" jsonschema:"metric name, e.g. KE_LSI"`
}

// ComputeLSIParams defines parameters for compute_lsi tool
type ComputeLSIParams struct {
	Uninvolved     []float64 `json:"uninvolved" jsonschema:"trials of the healthy limb"`
	Involved       []float64 `json:"involved" jsonschema:"trials of the operated limb"`
	Directionality string    `json:"directionality,omitempty" jsonschema:"higher_is_better (default) or lower_is_better"`
}

// ComputeTTBWParams defines parameters for compute_ttbw tool
type ComputeTTBWParams struct {
	Force         []float64 `json:"force_lbf" jsonschema:"force trials in lbf"`
	BodyWeightLbs float64   `json:"body_weight_lbs" jsonschema:"body weight in pounds"`
	MomentArmM    float64   `json:"moment_arm_m,omitempty" jsonschema:"lever arm in meters"`
}

// ExportTimelineParams defines parameters for export_timeline tool
type ExportTimelineParams struct {
	MRN string `json:"mrn" jsonschema:"medical record number"`
}

// SeriesResult is the metric_series payload.
type SeriesResult struct {
	MRN    string               `json:"mrn"`
	Metric string               `json:"metric"`
	Points []domain.SeriesPoint `json:"points"`
}

// ClassificationResult is the classify_phase payload for ad-hoc metrics.
type ClassificationResult struct {
	Phase domain.PhaseResult `json:"phase"`
	Radar []domain.RadarAxis `json:"radar"`
}

// ExportResult is the export_timeline payload.
type ExportResult struct {
	MRN      string `json:"mrn"`
	FilePath string `json:"file_path"`
	Bytes    int64  `json:"bytes"`
}

// ToolObserver receives one call per tool invocation.
type ToolObserver interface {
	ToolCalled(tool string, err error)
}

// Exporter writes a patient's timeline as JSON.
type Exporter interface {
	ExportJSON(ctx context.Context, mrn string, w io.Writer) error
}

// toolHandlers holds the collaborators of every tool.
type toolHandlers struct {
	service   *service.AssessmentService
	exporter  Exporter
	exportDir string
	observer  ToolObserver
	logger    *logrus.Logger
}

func (h *toolHandlers) handleRegisterPatient(ctx context.Context, _ *mcp.CallToolRequest, params RegisterPatientParams) (*mcp.CallToolResult, any, error) {
	surgery, err := domain.ParseDate(params.SurgeryDate)
	if err != nil {
		return h.finish(ToolRegisterPatient, nil, domain.NewValidationError("surgery_date", err.Error(), params.SurgeryDate))
	}
	patient := &domain.Patient{MRN: params.MRN, Name: params.Name, SurgeryDate: surgery}
	err = h.service.RegisterPatient(ctx, patient)
	return h.finish(ToolRegisterPatient, patient, err)
}

func (h *toolHandlers) handleRecordAssessment(ctx context.Context, _ *mcp.CallToolRequest, params RecordAssessmentParams) (*mcp.CallToolResult, any, error) {
	in, err := params.toInput()
	if err != nil {
		return h.finish(ToolRecordAssessment, nil, err)
	}
	record, err := h.service.RecordAssessment(ctx, params.MRN, in)
	if err != nil {
		return h.finish(ToolRecordAssessment, nil, err)
	}
	return h.finish(ToolRecordAssessment, map[string]interface{}{
		"record": record,
		"phase":  h.service.Classify(record),
	}, nil)
}

func (h *toolHandlers) handleClassifyPhase(ctx context.Context, _ *mcp.CallToolRequest, params ClassifyPhaseParams) (*mcp.CallToolResult, any, error) {
	if params.MRN != "" {
		report, err := h.service.CurrentPhase(ctx, params.MRN)
		return h.finish(ToolClassifyPhase, report, err)
	}
	if len(params.Metrics) == 0 {
		return h.finish(ToolClassifyPhase, nil, domain.NewValidationError("mrn", "either mrn or metrics is required", nil))
	}
	record, err := service.RecordFromMetrics(params.Metrics)
	if err != nil {
		return h.finish(ToolClassifyPhase, nil, err)
	}
	return h.finish(ToolClassifyPhase, ClassificationResult{
		Phase: h.service.Classify(record),
		Radar: h.service.Classifier().Radar(record),
	}, nil)
}

func (h *toolHandlers) handleMetricSeries(ctx context.Context, _ *mcp.CallToolRequest, params MetricSeriesParams) (*mcp.CallToolResult, any, error) {
	points, err := h.service.MetricSeries(ctx, params.MRN, params.Metric)
	if err != nil {
		return h.finish(ToolMetricSeries, nil, err)
	}
	return h.finish(ToolMetricSeries, SeriesResult{MRN: params.MRN, Metric: params.Metric, Points: points}, nil)
}

func (h *toolHandlers) handleComputeLSI(_ context.Context, _ *mcp.CallToolRequest, params ComputeLSIParams) (*mcp.CallToolResult, any, error) {
	res, err := service.ComputeLSI(domain.RawTrialSet{
		Uninvolved: params.Uninvolved,
		Involved:   params.Involved,
	}, domain.Directionality(params.Directionality))
	return h.finish(ToolComputeLSI, res, err)
}

func (h *toolHandlers) handleComputeTTBW(_ context.Context, _ *mcp.CallToolRequest, params ComputeTTBWParams) (*mcp.CallToolResult, any, error) {
	res, err := h.service.Builder().ComputeTTBW(params.Force, params.BodyWeightLbs, params.MomentArmM)
	return h.finish(ToolComputeTTBW, res, err)
}

// handleExportTimeline writes the patient's timeline into the export directory.
func (h *toolHandlers) handleExportTimeline(ctx context.Context, _ *mcp.CallToolRequest, params ExportTimelineParams) (*mcp.CallToolResult, any, error) {
	if _, err := h.service.GetPatient(ctx, params.MRN); err != nil {
		return h.finish(ToolExportTimeline, nil, err)
	}
	if err := os.MkdirAll(h.exportDir, 0o750); err != nil {
		return h.finish(ToolExportTimeline, nil, fmt.Errorf("failed to create export directory: %w", err))
	}

	name := fmt.Sprintf("timeline-%s-%s.json", safeFileName(params.MRN), time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(h.exportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return h.finish(ToolExportTimeline, nil, fmt.Errorf("failed to create export file: %w", err))
	}
	defer f.Close()

	if err := h.exporter.ExportJSON(ctx, params.MRN, f); err != nil {
		os.Remove(path)
		return h.finish(ToolExportTimeline, nil, err)
	}
	info, err := f.Stat()
	if err != nil {
		return h.finish(ToolExportTimeline, nil, err)
	}
	return h.finish(ToolExportTimeline, ExportResult{MRN: params.MRN, FilePath: path, Bytes: info.Size()}, nil)
}

// finish reports the outcome and renders either the JSON payload or an error result.
// Engine errors are tool errors, not protocol errors.
func (h *toolHandlers) finish(tool string, payload interface{}, err error) (*mcp.CallToolResult, any, error) {
	if h.observer != nil {
		h.observer.ToolCalled(tool, err)
	}
	entry := h.logger.WithField("tool", tool)
	if err != nil {
		entry.WithError(err).Warn("Tool call failed")
		return createErrorResult(err), nil, nil
	}
	entry.Debug("Tool call completed")

	data, mErr := json.MarshalIndent(payload, "", "  ")
	if mErr != nil {
		return nil, nil, fmt.Errorf("failed to encode %s result: %w", tool, mErr)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// createErrorResult creates a standardized error result for tool calls
func createErrorResult(err error) *mcp.CallToolResult {
	code := errorCode(err)
	text := fmt.Sprintf("Error [%s]: %v", code, err)
	if fields := domain.ValidationErrors(err); len(fields) > 1 {
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			lines = append(lines, "- "+f.Error())
		}
		text = fmt.Sprintf("Error [%s]: assessment input is invalid\n%s", code, strings.Join(lines, "\n"))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func errorCode(err error) string {
	switch {
	case domain.IsUndefinedMetric(err):
		return domain.ErrCodeUndefinedMetric
	case domain.IsValidationError(err):
		return domain.ErrCodeValidation
	case errors.Is(err, domain.ErrNoAssessment):
		return domain.ErrCodeNoAssessment
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrCodeNotFound
	case errors.Is(err, domain.ErrDuplicatePatient), errors.Is(err, domain.ErrDuplicateRecord):
		return domain.ErrCodeConflict
	default:
		return domain.ErrCodeInternalServer
	}
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
