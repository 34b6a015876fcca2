package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/service"
)

type registerPatientRequest struct {
	MRN         string `json:"mrn" binding:"required"`
	Name        string `json:"name" binding:"required"`
	SurgeryDate string `json:"surgery_date" binding:"required"`
}

// recordAssessmentRequest accepts the visit date as a civil date string.
type recordAssessmentRequest struct {
	domain.AssessmentInput
	VisitDate string `json:"visit_date"`
}

type calculateLSIRequest struct {
	Uninvolved     []float64             `json:"uninvolved"`
	Involved       []float64             `json:"involved"`
	Directionality domain.Directionality `json:"directionality"`
}

type calculateTTBWRequest struct {
	Force         []float64 `json:"force_lbf" binding:"required"`
	BodyWeightLbs float64   `json:"body_weight_lbs"`
	MomentArmM    float64   `json:"moment_arm_m"`
}

type classifyRequest struct {
	Metrics map[string]*float64 `json:"metrics" binding:"required"`
}

func (s *Server) handleRegisterPatient(c *gin.Context) {
	var req registerPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}
	surgery, err := domain.ParseDate(req.SurgeryDate)
	if err != nil {
		s.respondError(c, domain.NewValidationError("surgery_date", err.Error(), req.SurgeryDate))
		return
	}

	patient := &domain.Patient{MRN: req.MRN, Name: req.Name, SurgeryDate: surgery}
	if err := s.service.RegisterPatient(c.Request.Context(), patient); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleListPatients(c *gin.Context) {
	patients, err := s.service.ListPatients(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": patients, "count": len(patients)})
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.service.GetPatient(c.Request.Context(), c.Param("mrn"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// handleRecordAssessment stores a visit and returns it with its classification.
func (s *Server) handleRecordAssessment(c *gin.Context) {
	var req recordAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}
	in := req.AssessmentInput
	if req.VisitDate != "" {
		visit, err := domain.ParseDate(req.VisitDate)
		if err != nil {
			s.respondError(c, domain.NewValidationError("visit_date", err.Error(), req.VisitDate))
			return
		}
		in.VisitDate = visit
	}

	record, err := s.service.RecordAssessment(c.Request.Context(), c.Param("mrn"), &in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"record": record,
		"phase":  s.service.Classify(record),
	})
}

func (s *Server) handleListAssessments(c *gin.Context) {
	ctx := c.Request.Context()
	mrn := c.Param("mrn")

	patient, err := s.service.GetPatient(ctx, mrn)
	if err != nil {
		s.respondError(c, err)
		return
	}
	timeline, err := s.service.Timeline(ctx, mrn)
	if err != nil {
		s.respondError(c, err)
		return
	}
	records := timeline.Records()
	c.JSON(http.StatusOK, gin.H{
		"patient":     patient,
		"count":       len(records),
		"assessments": records,
	})
}

func (s *Server) handleCurrentPhase(c *gin.Context) {
	report, err := s.service.CurrentPhase(c.Request.Context(), c.Param("mrn"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMetricSeries(c *gin.Context) {
	mrn, metric := c.Param("mrn"), c.Param("metric")
	points, err := s.service.MetricSeries(c.Request.Context(), mrn, metric)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mrn": mrn, "metric": metric, "points": points})
}

func (s *Server) handleMetricDefinitions(c *gin.Context) {
	names := domain.MetricNames()
	defs := make([]domain.MetricDefinition, 0, len(names))
	for _, name := range names {
		def, _ := domain.LookupMetric(name)
		defs = append(defs, def)
	}
	c.JSON(http.StatusOK, gin.H{"metrics": defs})
}

func (s *Server) handleCalculateLSI(c *gin.Context) {
	var req calculateLSIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}
	res, err := service.ComputeLSI(domain.RawTrialSet{
		Uninvolved: req.Uninvolved,
		Involved:   req.Involved,
	}, req.Directionality)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCalculateTTBW(c *gin.Context) {
	var req calculateTTBWRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}
	res, err := s.service.Builder().ComputeTTBW(req.Force, req.BodyWeightLbs, req.MomentArmM)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleClassify classifies submitted metric values without storing anything.
func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBadRequest(c, err)
		return
	}
	record, err := service.RecordFromMetrics(req.Metrics)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"phase": s.service.Classify(record),
		"radar": s.service.Classifier().Radar(record),
	})
}
