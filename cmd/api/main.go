package main

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/obmenka-app/obmenka-api/internal/config"
	"github.com/obmenka-app/obmenka-api/internal/db"
	"github.com/obmenka-app/obmenka-api/internal/exchange"
	feedpkg "github.com/obmenka-app/obmenka-api/internal/feed"
	"github.com/obmenka-app/obmenka-api/internal/notify"
	"github.com/obmenka-app/obmenka-api/internal/services/auth"
	"github.com/obmenka-app/obmenka-api/internal/services/chat"
	"github.com/obmenka-app/obmenka-api/internal/services/cloudinary"
	"github.com/obmenka-app/obmenka-api/internal/services/donation"
	feedsvc "github.com/obmenka-app/obmenka-api/internal/services/feed"
	"github.com/obmenka-app/obmenka-api/internal/services/item"
	"github.com/obmenka-app/obmenka-api/internal/services/loan"
	"github.com/obmenka-app/obmenka-api/internal/services/notification"
	"github.com/obmenka-app/obmenka-api/internal/services/post"
	"github.com/obmenka-app/obmenka-api/internal/services/trade"
	"github.com/obmenka-app/obmenka-api/internal/storage"
	"github.com/obmenka-app/obmenka-api/internal/utils"
	"github.com/obmenka-app/obmenka-api/internal/websocket"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем базу данных
	pool, err := db.New(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer pool.Close()

	// Хранилища
	itemStore := storage.NewItemStore(pool)
	exchangeStore := storage.NewExchangeStore(pool)
	chatStore := storage.NewChatStore(pool)
	userStore := storage.NewUserStore(pool)
	postStore := storage.NewPostStore(pool)
	notificationStore := storage.NewNotificationStore(pool)

	// WebSocket-менеджер и доставка уведомлений
	hub := websocket.NewManager()
	defer hub.Shutdown()
	sink := notify.NewSink(notificationStore, hub)

	// Движок жизненного цикла обменов
	engine := exchange.NewEngine(exchange.Config{
		Items:         itemStore,
		Requests:      exchangeStore,
		Chats:         chatStore,
		Users:         userStore,
		Notifier:      sink,
		DonationLimit: cfg.ExchangeConfig.DonationRequestLimit,
	})

	// Сборщик ленты
	composer := feedpkg.NewComposer(feedpkg.Config{
		Friends:     userStore,
		Items:       itemStore,
		Posts:       postStore,
		Exchanges:   exchangeStore,
		FreshWindow: cfg.FeedConfig.FreshWindow,
	})

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Obmenka API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Создаём сервисы и регистрируем маршруты
	auth.NewAuthService(cfg, userStore).SetupRoutes(app)
	item.NewItemService(cfg, itemStore, exchangeStore).SetupRoutes(app)
	trade.NewTradeService(cfg, engine, exchangeStore).SetupRoutes(app)
	donation.NewDonationService(cfg, engine, exchangeStore).SetupRoutes(app)
	loan.NewLoanService(cfg, engine, exchangeStore).SetupRoutes(app)
	feedsvc.NewFeedService(cfg, composer).SetupRoutes(app)
	post.NewPostService(cfg, postStore).SetupRoutes(app)
	chat.NewChatService(cfg, chatStore, exchangeStore, hub).SetupRoutes(app)
	notification.NewNotificationService(cfg, notificationStore).SetupRoutes(app)
	cloudinary.NewCloudinaryService(cfg).SetupRoutes(app)

	// WebSocket живет на отдельном порту: gorilla/websocket требует net/http
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.NewHandler(hub, jwtService))
		log.Println("✅ WebSocket-сервер запущен на порту 8081")
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Fatalf("❌ Ошибка WebSocket-сервера: %v", err)
		}
	}()

	// Запускаем сервер
	log.Println("✅ Obmenka API запущен на порту 8080")
	log.Fatal(app.Listen(":8080"))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
