package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/ierrors"
	"github.com/travelintel/dealengine/internal/intent"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/tripplanner"
)

// Router builds the gin.Engine exposing the HTTP/JSON surface.
// Handlers here are thin: each resolves its request into a
// call against Service's components and shapes the response
// (ShouldBindJSON in, a uniform {error} body on failure).
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/deals", s.handleListDeals)
	r.GET("/deals/:id", s.handleGetDeal)
	r.GET("/deals/:id/explain", s.handleExplainDeal)
	r.POST("/deals/:id/explain", s.handleExplainDeal)

	r.POST("/chat", s.handleChat)
	r.POST("/trip/plan", s.handleTripPlan)
	r.POST("/policy", s.handlePolicy)

	r.POST("/watch/create", s.handleCreateWatch)
	r.GET("/watch/list", s.handleListWatches)
	r.DELETE("/watch/:id", s.handleDeleteWatch)

	r.GET("/preferences/:user", s.handleGetPreferences)
	r.POST("/preferences/:user", s.handleSetPreferences)

	r.GET("/ws/events", s.handleWebsocket)

	return r
}

func (s *Service) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a DealError to its HTTP status; any
// other error is treated as an unexpected internal failure.
func writeError(c *gin.Context, err error) {
	if de, ok := err.(*ierrors.DealError); ok {
		c.JSON(de.HTTPStatus(), errorBody{Error: de.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (s *Service) handleListDeals(c *gin.Context) {
	dealType := model.DealType(c.Query("type"))
	deals, err := s.Store.ListActiveDeals(c.Request.Context(), dealType)
	if err != nil {
		writeError(c, err)
		return
	}

	minScore, _ := strconv.ParseFloat(c.Query("min_score"), 64)
	origin := c.Query("origin")
	destination := c.Query("destination")
	limit := 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}

	filtered := make([]model.Deal, 0, len(deals))
	for _, d := range deals {
		if minScore > 0 && d.Score < minScore {
			continue
		}
		if origin != "" && d.MetadataString("origin") != origin {
			continue
		}
		if destination != "" && d.MetadataString("destination") != destination {
			continue
		}
		filtered = append(filtered, d)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	c.JSON(http.StatusOK, filtered)
}

func (s *Service) handleGetDeal(c *gin.Context) {
	d, err := s.Store.GetDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Service) handleExplainDeal(c *gin.Context) {
	exp, err := s.Policy.ExplainDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

type chatRequest struct {
	UserID              string               `json:"user_id"`
	Message             string               `json:"message"`
	ConversationHistory []intent.HistoryTurn `json:"conversation_history"`
}

func (s *Service) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	result, err := s.Intent.Parse(c.Request.Context(), req.UserID, req.Message, req.ConversationHistory)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"response":   responseTextFor(result),
		"intent":     result.Intent,
		"entities":   result.Entities,
		"confidence": result.Confidence,
	}

	if result.Intent == intent.IntentPlanTrip {
		q := tripQueryFromEntities(req.UserID, result.Entities)
		if plans, perr := s.Planner.PlanAndPersist(c.Request.Context(), q, s.Met); perr == nil {
			resp["plans"] = plans
		}
	}

	c.JSON(http.StatusOK, resp)
}

func responseTextFor(r intent.Result) string {
	switch r.Intent {
	case intent.IntentSearchFlights:
		return "Looking for flights matching your request."
	case intent.IntentSearchHotels:
		return "Looking for hotels matching your request."
	case intent.IntentPlanTrip:
		return "Putting together trip options for you."
	case intent.IntentFindDeals:
		return "Here are the best deals we found."
	case intent.IntentRefine:
		return "Updated your search with the new preferences."
	default:
		return "Let me know more about what you're looking for."
	}
}

func tripQueryFromEntities(userID string, e intent.Entities) tripplanner.Query {
	q := tripplanner.Query{
		UserID:      userID,
		Origin:      e.Origin,
		Destination: e.Destination,
		Budget:      e.Budget,
		Preferences: e.Preferences,
	}
	if e.PartySize != nil {
		q.PartySize = *e.PartySize
	}
	return q
}

type tripPlanRequest struct {
	UserID      string     `json:"user_id"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Budget      *float64   `json:"budget"`
	PartySize   int        `json:"party_size"`
	Preferences []string   `json:"preferences"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (s *Service) handleTripPlan(c *gin.Context) {
	var req tripPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	q := tripplanner.Query{
		UserID:      req.UserID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Budget:      req.Budget,
		PartySize:   req.PartySize,
		Preferences: req.Preferences,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}

	plans, err := s.Planner.PlanAndPersist(c.Request.Context(), q, s.Met)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(plans) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"plan_id":      "",
			"itinerary":    nil,
			"fit_score":    0,
			"total_cost":   0,
			"alternatives": []model.TripPlan{},
		})
		return
	}

	best := plans[0]
	alternatives := plans[1:]
	c.JSON(http.StatusOK, gin.H{
		"plan_id":      best.ID,
		"itinerary":    best.GetItinerary(),
		"fit_score":    best.FitScore,
		"total_cost":   best.TotalCost,
		"alternatives": alternatives,
	})
}

type policyRequest struct {
	Question string `json:"question"`
	DealID   string `json:"deal_id"`
}

func (s *Service) handlePolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	result, ok, err := s.Policy.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, errorBody{Error: "no policy answer found for question"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type createWatchRequest struct {
	UserID             string   `json:"user_id"`
	DealID             string   `json:"deal_id"`
	PriceThreshold     *float64 `json:"price_threshold"`
	InventoryThreshold *int     `json:"inventory_threshold"`
}

func (s *Service) handleCreateWatch(c *gin.Context) {
	var req createWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.PriceThreshold == nil && req.InventoryThreshold == nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "at least one of price_threshold/inventory_threshold is required"})
		return
	}
	if _, err := s.Store.GetDeal(c.Request.Context(), req.DealID); err != nil {
		writeError(c, err)
		return
	}

	w := &model.PriceWatch{
		UserID:             req.UserID,
		DealID:             req.DealID,
		PriceThreshold:     req.PriceThreshold,
		InventoryThreshold: req.InventoryThreshold,
	}
	if err := s.Store.CreateWatch(c.Request.Context(), w); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (s *Service) handleListWatches(c *gin.Context) {
	userID := c.Query("user_id")
	watches, err := s.Store.ListWatchesForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, watches)
}

func (s *Service) handleDeleteWatch(c *gin.Context) {
	if err := s.Store.DeleteWatch(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleGetPreferences(c *gin.Context) {
	pref, err := s.Store.GetUserPreference(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":      pref.UserID,
		"preferences":  pref.Get(),
		"search_count": pref.SearchCount,
		"updated_at":   pref.UpdatedAt,
	})
}

func (s *Service) handleSetPreferences(c *gin.Context) {
	var prefs model.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	userID := c.Param("user")
	pref, err := s.Store.GetUserPreference(c.Request.Context(), userID)
	if err != nil {
		pref = &model.UserPreference{UserID: userID}
	}
	pref.Set(prefs)
	if err := s.Store.SaveUserPreference(c.Request.Context(), pref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": pref.UserID, "preferences": pref.Get()})
}
