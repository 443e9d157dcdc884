// Package demo provides demo data seeding for demonstration deployments.
package demo

import (
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/auth"
	"tradejournal/internal/database"
	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

// Seeder seeds the database with demo data.
type Seeder struct {
	db            *database.DB
	userRepo      *repository.UserRepository
	tradeRepo     *repository.TradeRepository
	watchlistRepo *repository.WatchlistRepository
}

// NewSeeder creates a new demo data seeder.
func NewSeeder(db *database.DB) *Seeder {
	return &Seeder{
		db:            db,
		userRepo:      repository.NewUserRepository(db),
		tradeRepo:     repository.NewTradeRepository(db),
		watchlistRepo: repository.NewWatchlistRepository(db),
	}
}

// SeedIfEmpty seeds demo data if the database is empty.
func (s *Seeder) SeedIfEmpty() error {
	count, err := s.userRepo.CountAll()
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("Database already has users, skipping demo seed")
		return nil
	}

	log.Println("Seeding demo data...")
	return s.Seed()
}

// Seed creates a demo user with a small trade history and watchlist.
func (s *Seeder) Seed() error {
	passwordHash, err := auth.HashPassword("demo1234")
	if err != nil {
		return err
	}

	demoUser := &models.User{
		Email:        "demo@example.com",
		PasswordHash: passwordHash,
		Name:         "Demo User",
	}

	userID, err := s.userRepo.Create(demoUser)
	if err != nil {
		return err
	}
	log.Printf("Created demo user (ID: %d)", userID)

	type seedTrade struct {
		symbol   string
		side     string
		quantity string
		price    string
		fees     string
		daysAgo  int
	}

	seedTrades := []seedTrade{
		{"AAPL", models.TradeBuy, "10", "172.30", "1.00", 45},
		{"AAPL", models.TradeBuy, "5", "181.10", "1.00", 30},
		{"AAPL", models.TradeSell, "8", "195.40", "1.00", 12},
		{"MSFT", models.TradeBuy, "6", "402.50", "1.00", 40},
		{"MSFT", models.TradeSell, "6", "418.75", "1.00", 7},
		{"TSLA", models.TradeBuy, "4", "244.90", "1.00", 20},
	}

	for i, st := range seedTrades {
		quantity, _ := decimal.NewFromString(st.quantity)
		price, _ := decimal.NewFromString(st.price)
		fees, _ := decimal.NewFromString(st.fees)

		trade := &models.Trade{
			UserID:     userID,
			AccountID:  "demo-account",
			ExternalID: "demo-" + st.symbol + "-" + string(rune('a'+i)),
			Symbol:     st.symbol,
			Side:       st.side,
			Quantity:   quantity,
			Price:      price,
			Fees:       fees,
			Currency:   "USD",
			Source:     models.SourceSnapTrade,
			ExecutedAt: time.Now().AddDate(0, 0, -st.daysAgo),
		}
		if err := s.tradeRepo.Upsert(trade); err != nil {
			return err
		}
	}
	log.Printf("Created %d demo trades", len(seedTrades))

	for _, symbol := range []string{"AAPL", "MSFT", "TSLA", "NVDA"} {
		if _, err := s.watchlistRepo.Add(userID, symbol); err != nil {
			return err
		}
	}
	log.Println("Created demo watchlist")

	return nil
}
