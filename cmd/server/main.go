package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/quizbank/backend/internal/adaptive"
	"github.com/quizbank/backend/internal/auth"
	"github.com/quizbank/backend/internal/bank"
	"github.com/quizbank/backend/internal/database"
	"github.com/quizbank/backend/internal/importer"
	"github.com/quizbank/backend/internal/monitor"
	"github.com/quizbank/backend/internal/parser"
	"github.com/quizbank/backend/internal/progress"
	"github.com/rs/cors"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Parse pipeline collaborators, each one shared instance.
	metrics := monitor.New(monitor.DefaultCapacity, monitor.NewStore(db))
	gate := adaptive.NewManager(metrics)
	cost := adaptive.NewCostOptimizer(adaptive.NewBudgetStore(db))

	var ocr parser.OCREngine
	if endpoint := os.Getenv("OCR_ENDPOINT"); endpoint != "" {
		ocr = parser.NewHTTPOCREngine(endpoint)
		log.Printf("OCR engine enabled: %s", endpoint)
	}

	ai := parser.NewAIStrategy(cost)
	pipeline := parser.NewPipeline(ai, ocr, cost, metrics, gate)

	// Services and handlers
	bankStore := bank.NewStore(db)
	bankService := bank.NewService(bankStore)
	bankHandler := bank.NewHandler(bankService)

	sessions := importer.NewSessionManager(pipeline, importer.New(bankStore, importer.AsyncRunner{}, importer.DefaultBatchSize))
	importHandler := importer.NewHandler(sessions)

	progressHandler := progress.NewHandler(progress.NewService(db))
	authHandler := auth.NewHandler(db)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	// Question banks
	protected.HandleFunc("/banks", bankHandler.CreateBank).Methods("POST")
	protected.HandleFunc("/banks", bankHandler.ListBanks).Methods("GET")
	protected.HandleFunc("/banks/{id}", bankHandler.DeleteBank).Methods("DELETE")
	protected.HandleFunc("/banks/{id}/chapters", bankHandler.CreateChapter).Methods("POST")
	protected.HandleFunc("/banks/{id}/chapters", bankHandler.ListChapters).Methods("GET")
	protected.HandleFunc("/banks/{id}/plan", bankHandler.UpsertStudyPlan).Methods("PUT")
	protected.HandleFunc("/banks/{id}/plan", bankHandler.GetStudyPlan).Methods("GET")
	protected.HandleFunc("/chapters/{id}/questions", bankHandler.ListQuestions).Methods("GET")
	protected.HandleFunc("/questions/{id}", bankHandler.DeleteQuestion).Methods("DELETE")
	protected.HandleFunc("/questions/{id}/answer", bankHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/questions/{id}/mastery", bankHandler.SetMastered).Methods("PUT")
	protected.HandleFunc("/wrong-questions", bankHandler.ListWrong).Methods("GET")

	// Import sessions
	protected.HandleFunc("/import/sessions", importHandler.CreateSession).Methods("POST")
	protected.HandleFunc("/import/sessions/{id}", importHandler.GetSession).Methods("GET")
	protected.HandleFunc("/import/sessions/{id}", importHandler.CancelSession).Methods("DELETE")
	protected.HandleFunc("/import/sessions/{id}/parse", importHandler.ParseInput).Methods("POST")
	protected.HandleFunc("/import/sessions/{id}/file", importHandler.UploadFile).Methods("POST")
	protected.HandleFunc("/import/sessions/{id}/questions/{index}", importHandler.UpdateQuestion).Methods("PUT")
	protected.HandleFunc("/import/sessions/{id}/questions/{index}", importHandler.RemoveQuestion).Methods("DELETE")
	protected.HandleFunc("/import/sessions/{id}/confirm", importHandler.ConfirmImport).Methods("POST")
	protected.HandleFunc("/import/sessions/{id}/progress", importHandler.GetProgress).Methods("GET")

	// Progress & diagnostics
	protected.HandleFunc("/progress/stats", progressHandler.GetStats).Methods("GET")
	protected.HandleFunc("/diagnostics/report", diagnosticsHandler(metrics, gate, cost)).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
