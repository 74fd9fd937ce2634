// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/parleychat/parley/backend/config"
	"github.com/parleychat/parley/backend/fanout"
	"github.com/parleychat/parley/backend/handlers"
	"github.com/parleychat/parley/backend/jobs"
	"github.com/parleychat/parley/backend/middleware"
	"github.com/parleychat/parley/backend/storage/disk"
	"github.com/parleychat/parley/backend/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis connection
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid redis URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)

	// Initialize storage
	store := postgres.NewStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	blobs, err := disk.NewStore(cfg.AttachmentsDir, cfg.AttachmentsBaseURL)
	if err != nil {
		log.Fatalf("Failed to open attachment store: %v", err)
	}

	// Fan-out and presence
	events := fanout.NewEngine(fanout.NewRedisBroker(rdb))
	presence := fanout.NewPresence(rdb, events)

	// Background jobs
	asynqOpts := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}
	asynqClient := asynq.NewClient(asynqOpts)
	defer asynqClient.Close()
	enqueuer := jobs.NewAsynqEnqueuer(asynqClient)

	worker := jobs.NewPurgeWorker(store, store, blobs, events)
	asynqServer := asynq.NewServer(asynqOpts, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	asynqMux := asynq.NewServeMux()
	asynqMux.Handle(jobs.TypeGroupPurge, worker)
	go func() {
		if err := asynqServer.Run(asynqMux); err != nil {
			log.Fatalf("Worker server stopped: %v", err)
		}
	}()

	// Initialize handlers
	messageHandler := handlers.NewMessageHandler(store, blobs, events)
	groupHandler := handlers.NewGroupHandler(store, blobs, events, enqueuer)
	userHandler := handlers.NewUserHandler(store, events)
	conversationHandler := handlers.NewConversationHandler(store, blobs)
	channelHandler := handlers.NewChannelHandler(store, presence)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer))

	// Message endpoints
	api.HandleFunc("/messages", messageHandler.Send).Methods("POST")
	api.HandleFunc("/messages/user/{id}", messageHandler.ByUser).Methods("GET")
	api.HandleFunc("/messages/group/{id}", messageHandler.ByGroup).Methods("GET")
	api.HandleFunc("/messages/older/{id}", messageHandler.Older).Methods("GET")
	api.HandleFunc("/messages/{id}", messageHandler.Edit).Methods("PATCH")
	api.HandleFunc("/messages/{id}", messageHandler.Delete).Methods("DELETE")

	// Group endpoints
	api.HandleFunc("/groups", groupHandler.Create).Methods("POST")
	api.HandleFunc("/groups/{id}", groupHandler.Update).Methods("PATCH")
	api.HandleFunc("/groups/{id}", groupHandler.Destroy).Methods("DELETE")
	api.HandleFunc("/groups/{id}/avatar", groupHandler.UploadAvatar).Methods("POST")
	api.HandleFunc("/groups/{id}/avatar", groupHandler.RemoveAvatar).Methods("DELETE")
	api.HandleFunc("/groups/{id}/members", groupHandler.Members).Methods("GET")
	api.HandleFunc("/groups/{id}/invite", groupHandler.Invite).Methods("POST")
	api.HandleFunc("/groups/{id}/role", groupHandler.UpdateMemberRole).Methods("PATCH")
	api.HandleFunc("/groups/{id}/members/{userId}", groupHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/groups/{id}/transfer-ownership", groupHandler.TransferOwnership).Methods("POST")
	api.HandleFunc("/groups/{id}/leave", groupHandler.Leave).Methods("POST")

	// User endpoints
	api.HandleFunc("/users/search", userHandler.Search).Methods("GET")
	api.HandleFunc("/users/{id}/block", userHandler.Block).Methods("POST")
	api.HandleFunc("/users/{id}/block", userHandler.Unblock).Methods("DELETE")

	// Conversation endpoints
	api.HandleFunc("/conversations", conversationHandler.List).Methods("GET")
	api.HandleFunc("/conversations/find-or-create", conversationHandler.FindOrCreate).Methods("POST")
	api.HandleFunc("/conversations/user/{id}", conversationHandler.Delete).Methods("DELETE")

	// Channel auth and presence
	api.HandleFunc("/broadcasting/auth", channelHandler.Authorize).Methods("POST")
	api.HandleFunc("/broadcasting/disconnect", channelHandler.Disconnect).Methods("POST")
	api.HandleFunc("/presence/online", channelHandler.Online).Methods("GET")

	// Attachment files
	r.PathPrefix("/attachments/").Handler(
		http.StripPrefix("/attachments/", http.FileServer(http.Dir(cfg.AttachmentsDir))))

	// Health check (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
