// Package api exposes the trading core over HTTP for collaborating services
// and manual inspection. It is a thin read/submit surface: every mutation is
// forwarded to the engine loop and waits for its synchronous result.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/execution"
	"papertrade/internal/feed"
	"papertrade/pkg/quant"
)

// Server serves the REST API.
type Server struct {
	eng  *engine.Engine
	conn *feed.Connector
	http *http.Server
}

// tradePairRe matches exchange pair symbols like BTCUSDT.
var tradePairRe = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("tradepair", func(fl validator.FieldLevel) bool {
			return tradePairRe.MatchString(fl.Field().String())
		})
	}
}

// NewServer builds the router and binds it to addr. Call Start to listen.
func NewServer(addr string, eng *engine.Engine, conn *feed.Connector) *Server {
	gin.SetMode(gin.ReleaseMode)
	registerValidations()

	s := &Server{eng: eng, conn: conn}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/feed", s.feedStatus)

		v1.GET("/quotes", s.listQuotes)
		v1.GET("/quotes/:symbol", s.getQuote)

		v1.GET("/portfolio", s.getPortfolio)

		v1.GET("/orders", s.listOrders)
		v1.POST("/orders", s.submitOrder)
		v1.DELETE("/orders/:id", s.cancelOrder)

		v1.POST("/deposits", s.deposit)

		v1.GET("/subscriptions", s.listSubscriptions)
		v1.POST("/subscriptions", s.subscribe)
		v1.DELETE("/subscriptions/:symbol", s.unsubscribe)

		v1.GET("/alerts", s.listAlerts)
		v1.POST("/alerts", s.addAlert)
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens until the server is shut down. Blocking.
func (s *Server) Start() error {
	slog.Info("API server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"dur", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) feedStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":     string(s.conn.State()),
		"connected": s.conn.IsConnected(),
		"symbols":   s.conn.Symbols(),
	})
}

func (s *Server) listQuotes(c *gin.Context) {
	quotes := s.eng.Quotes()
	out := make([]quoteView, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toQuoteView(q))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getQuote(c *gin.Context) {
	symbol := c.Param("symbol")
	q, ok := s.eng.Store().Get(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for symbol", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, toQuoteView(q))
}

func (s *Server) getPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, toPortfolioView(s.eng.Portfolio()))
}

func (s *Server) listOrders(c *gin.Context) {
	p := s.eng.Portfolio()
	out := make([]orderView, 0, len(p.Orders))
	for _, o := range p.Orders {
		if c.Query("open") == "true" && !o.IsOpen() {
			continue
		}
		out = append(out, toOrderView(o))
	}
	c.JSON(http.StatusOK, out)
}

// submitOrderRequest carries decimal floats; conversion to fixed-point
// happens once, here.
type submitOrderRequest struct {
	Symbol    string  `json:"symbol" binding:"required,tradepair"`
	Side      string  `json:"side" binding:"required,oneof=BUY SELL"`
	Type      string  `json:"type" binding:"required,oneof=MARKET LIMIT STOP STOP_LIMIT"`
	Qty       float64 `json:"qty" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"omitempty,gt=0"`
	StopPrice float64 `json:"stop_price" binding:"omitempty,gt=0"`
}

func (s *Server) submitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := domain.Order{
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            req.Type,
		QtySats:         quant.ToQtySats(req.Qty),
		PriceMicros:     quant.ToPriceMicros(req.Price),
		StopPriceMicros: quant.ToPriceMicros(req.StopPrice),
	}

	placed, err := s.eng.SubmitOrder(c.Request.Context(), o)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, execution.ErrInsufficientBalance) || errors.Is(err, domain.ErrOversell) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toOrderView(placed))
}

func (s *Server) cancelOrder(c *gin.Context) {
	err := s.eng.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, domain.ErrTerminalOrder) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type depositRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.eng.Deposit(c.Request.Context(), quant.ToPriceMicros(req.Amount)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toPortfolioView(s.eng.Portfolio()))
}

func (s *Server) listSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.conn.Symbols()})
}

type subscribeRequest struct {
	Symbol string `json:"symbol" binding:"required,tradepair"`
}

func (s *Server) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.conn.Subscribe(req.Symbol)
	c.JSON(http.StatusCreated, gin.H{"symbol": req.Symbol})
}

func (s *Server) unsubscribe(c *gin.Context) {
	s.conn.Unsubscribe(c.Param("symbol"))
	c.Status(http.StatusNoContent)
}

func (s *Server) listAlerts(c *gin.Context) {
	alerts := s.eng.Alerts()
	out := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertView(a))
	}
	c.JSON(http.StatusOK, out)
}

type addAlertRequest struct {
	Symbol      string  `json:"symbol" binding:"required,tradepair"`
	TargetPrice float64 `json:"target_price" binding:"required,gt=0"`
	Persistent  bool    `json:"persistent"`
}

func (s *Server) addAlert(c *gin.Context) {
	var req addAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := s.eng.AddAlert(req.Symbol, quant.ToPriceMicros(req.TargetPrice), req.Persistent)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toAlertView(a))
}
