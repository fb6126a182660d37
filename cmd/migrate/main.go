package main

import (
	"log"

	"bottarot-be/internal/config"
	"bottarot-be/internal/model"
	"bottarot-be/pkg/database"
)

// Creates the tables and RPC functions the BFF reads on a fresh database.
// Production runs against Supabase, where these already exist.
func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.Profile{}, &model.Chat{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating chat list functions...")
	functions := []string{
		`CREATE OR REPLACE FUNCTION get_chat_list(p_user_id uuid)
		 RETURNS TABLE (id uuid, title text, is_favorite boolean, created_at timestamptz)
		 LANGUAGE sql STABLE AS $$
		   SELECT c.id, c.title, c.is_favorite, c.created_at
		   FROM chats c
		   WHERE c.user_id = p_user_id
		   ORDER BY c.is_favorite DESC, c.created_at DESC;
		 $$;`,

		`CREATE OR REPLACE FUNCTION delete_chat(p_chat_id uuid, p_user_id uuid)
		 RETURNS void LANGUAGE plpgsql AS $$
		 BEGIN
		   DELETE FROM chats WHERE id = p_chat_id AND user_id = p_user_id;
		   IF NOT FOUND THEN RAISE EXCEPTION 'chat % not found', p_chat_id; END IF;
		 END; $$;`,

		`CREATE OR REPLACE FUNCTION update_chat_title(p_chat_id uuid, p_user_id uuid, p_new_title text)
		 RETURNS void LANGUAGE plpgsql AS $$
		 BEGIN
		   UPDATE chats SET title = p_new_title, updated_at = now()
		   WHERE id = p_chat_id AND user_id = p_user_id;
		   IF NOT FOUND THEN RAISE EXCEPTION 'chat % not found', p_chat_id; END IF;
		 END; $$;`,

		`CREATE OR REPLACE FUNCTION toggle_chat_favorite(p_chat_id uuid, p_user_id uuid)
		 RETURNS void LANGUAGE plpgsql AS $$
		 BEGIN
		   UPDATE chats SET is_favorite = NOT is_favorite, updated_at = now()
		   WHERE id = p_chat_id AND user_id = p_user_id;
		   IF NOT FOUND THEN RAISE EXCEPTION 'chat % not found', p_chat_id; END IF;
		 END; $$;`,
	}
	for _, sql := range functions {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to create function: %v", err)
		}
	}

	log.Println("Success: database is ready.")
}
