package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/pharmago/dispatch/internal/validator"
	"github.com/pharmago/dispatch/internal/worker"
	"github.com/rs/zerolog/log"
)

type Server struct {
	router           *gin.Engine
	dbStore          db.Store
	config           *util.Config
	dispatcher       *dispatch.Engine
	deliveryService  *delivery.Service
	commissionEngine *commission.Engine
	paymentService   *payment.Service
	settingsService  *settings.Service
	taskDistributor  worker.TaskDistributor
	eventSender      event.EventSender
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(
	config *util.Config,
	store db.Store,
	dispatcher *dispatch.Engine,
	deliveryService *delivery.Service,
	commissionEngine *commission.Engine,
	paymentService *payment.Service,
	settingsService *settings.Service,
	taskDistributor worker.TaskDistributor,
	eventSender event.EventSender,
) *Server {
	server := &Server{
		dbStore:          store,
		config:           config,
		dispatcher:       dispatcher,
		deliveryService:  deliveryService,
		commissionEngine: commissionEngine,
		paymentService:   paymentService,
		settingsService:  settingsService,
		taskDistributor:  taskDistributor,
		eventSender:      eventSender,
	}

	server.setupRouter()
	return server
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	if err := validator.RegisterBindings(); err != nil {
		log.Error().Err(err).Msg("failed to register binding validators")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/v1")

	orderGroup := v1.Group("/orders")
	{
		orderGroup.POST(":id/ready", server.markOrderReady)
		orderGroup.POST(":id/assign", server.assignOrder)
		orderGroup.POST(":id/assign/:courier_id", server.assignOrderToCourier)
		orderGroup.GET(":id/commission", server.getOrderCommission)
		orderGroup.POST(":id/commission", server.distributeOrderCommission)
	}

	deliveryGroup := v1.Group("/deliveries")
	{
		deliveryGroup.POST("assign-pending", server.assignPendingDeliveries)
		deliveryGroup.GET("estimate", server.estimateDelivery)
		deliveryGroup.GET(":id", server.getDelivery)
		deliveryGroup.GET(":id/stream", server.streamDeliveryEvents)
		deliveryGroup.POST(":id/reassign", server.reassignDelivery)
		deliveryGroup.POST(":id/accept", server.acceptDelivery)
		deliveryGroup.POST(":id/reject", server.rejectDelivery)
		deliveryGroup.POST(":id/pickup", server.pickUpDelivery)
		deliveryGroup.POST(":id/transit", server.startDeliveryTransit)
		deliveryGroup.POST(":id/arrived", server.markDeliveryArrived)
		deliveryGroup.POST(":id/deliver", server.completeDelivery)
		deliveryGroup.POST(":id/cancel", server.cancelDelivery)
	}

	v1.PUT("/couriers/:id/location", server.updateCourierLocation)

	walletGroup := v1.Group("/wallets/:owner_type/:owner_id")
	{
		walletGroup.GET("", server.getWallet)
		walletGroup.GET("transactions", server.listWalletTransactions)
	}

	v1.GET("/settings", server.listSettings)
	v1.GET("/settings/:key", server.getSetting)
	v1.PUT("/settings/:key", server.updateSetting)

	v1.POST("/payments/webhook", server.handlePaymentWebhook)

	server.router = router
	return router
}

// Start runs the HTTP server a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
