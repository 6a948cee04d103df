package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"wayantrails/internal/config"
	"wayantrails/internal/database"
	"wayantrails/internal/gateway"
	"wayantrails/internal/middleware"
	"wayantrails/internal/modules/booking"
	"wayantrails/internal/modules/listing"
	"wayantrails/internal/modules/payment"
	"wayantrails/internal/notification"
	jwtsvc "wayantrails/internal/pkg/jwt"
	"wayantrails/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	whatsappRepo := repository.NewWhatsAppRepository(db)
	listingRepo := repository.NewListingRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	gw := buildGateway(cfg)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	bookingService := booking.NewService(
		bookingRepo,
		availabilityRepo,
		whatsappRepo,
		listingRepo,
		cfg.TaxRate,
		cfg.CommissionRate,
		cfg.WhatsAppPhone,
		log.Printf,
	)
	bookingHandler := booking.NewHandler(bookingService)

	paymentService := payment.NewService(
		paymentRepo,
		bookingRepo,
		bookingService,
		whatsappRepo,
		outboxRepo,
		gw,
		log.Printf,
	)
	paymentHandler := payment.NewHandler(paymentService)

	listingService := listing.NewService(listingRepo)
	listingHandler := listing.NewHandler(listingService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := buildPublisher(cfg)
	defer publisher.Close()
	relay := notification.NewRelay(outboxRepo, publisher, cfg.BookingEventsTopic, cfg.OutboxPollInterval, log.Printf)
	go relay.Run(ctx)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// Public: guest checkout, availability, gateway callbacks.
		public := v1.Group("/")
		public.Use(middleware.OptionalJWT(j))
		{
			bookingHandler.RegisterPublic(public)
			paymentHandler.RegisterPublic(public)
			listingHandler.RegisterPublic(public)
		}

		// Authenticated guests and staff.
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			bookingHandler.RegisterProtected(protected)
			paymentHandler.RegisterProtected(protected)
		}

		// Back office.
		staff := v1.Group("/")
		staff.Use(middleware.JWTAuth(j), middleware.StaffOnly())
		{
			bookingHandler.RegisterStaff(staff)
			paymentHandler.RegisterStaff(staff)
			listingHandler.RegisterStaff(staff)
		}
	}

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}

func buildGateway(cfg *config.Config) gateway.Gateway {
	if cfg.UseMockGateway {
		log.Println("level=info msg=\"using mock payment gateway\"")
		return gateway.NewMock()
	}
	gw, err := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret, cfg.GatewayTimeout)
	if err != nil {
		log.Fatal(err)
	}
	return gw
}

func buildPublisher(cfg *config.Config) notification.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Println("level=info msg=\"no kafka brokers configured, events stay in outbox\"")
		return notification.NoopPublisher{}
	}
	p, err := notification.NewKafkaPublisher(cfg.KafkaBrokers, nil)
	if err != nil {
		log.Fatal(err)
	}
	return p
}
