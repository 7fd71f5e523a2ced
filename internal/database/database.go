package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "quizbank_user")
	password := getEnv("DB_PASSWORD", "quizbank_password")
	dbname := getEnv("DB_NAME", "quizbank")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS question_banks (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        VARCHAR(255) NOT NULL,
		description TEXT,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_banks_user ON question_banks(user_id);

	CREATE TABLE IF NOT EXISTS chapters (
		id         BIGSERIAL PRIMARY KEY,
		bank_id    BIGINT NOT NULL REFERENCES question_banks(id) ON DELETE CASCADE,
		name       VARCHAR(255) NOT NULL,
		position   INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_chapters_bank ON chapters(bank_id, position);

	CREATE TABLE IF NOT EXISTS questions (
		id             BIGSERIAL PRIMARY KEY,
		bank_id        BIGINT NOT NULL REFERENCES question_banks(id) ON DELETE CASCADE,
		chapter_id     BIGINT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		title          TEXT NOT NULL,
		options        JSONB NOT NULL,
		correct_answer INT NOT NULL,
		explanation    TEXT,
		difficulty     VARCHAR(20),
		tags           JSONB,
		status         VARCHAR(20) NOT NULL DEFAULT 'new',
		wrong_count    INT NOT NULL DEFAULT 0,
		is_mastered    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_chapter ON questions(chapter_id);
	CREATE INDEX IF NOT EXISTS idx_questions_bank ON questions(bank_id, status);

	CREATE TABLE IF NOT EXISTS answer_records (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		selected    INT NOT NULL,
		correct     BOOLEAN NOT NULL,
		answered_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_answers_question ON answer_records(question_id);
	CREATE INDEX IF NOT EXISTS idx_answers_user_date ON answer_records(user_id, answered_at DESC);

	CREATE TABLE IF NOT EXISTS wrong_questions (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		bank_id     BIGINT NOT NULL REFERENCES question_banks(id) ON DELETE CASCADE,
		chapter_id  BIGINT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		wrong_count INT NOT NULL DEFAULT 1,
		is_mastered BOOLEAN NOT NULL DEFAULT FALSE,
		last_wrong  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, question_id)
	);

	CREATE INDEX IF NOT EXISTS idx_wrong_question ON wrong_questions(question_id);
	CREATE INDEX IF NOT EXISTS idx_wrong_bank ON wrong_questions(user_id, bank_id, is_mastered);
	CREATE INDEX IF NOT EXISTS idx_wrong_chapter ON wrong_questions(user_id, chapter_id, is_mastered);

	CREATE TABLE IF NOT EXISTS study_plans (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bank_id      BIGINT NOT NULL REFERENCES question_banks(id) ON DELETE CASCADE,
		daily_target INT NOT NULL DEFAULT 20,
		target_date  DATE,
		created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, bank_id)
	);

	CREATE TABLE IF NOT EXISTS parse_metrics (
		id                 BIGSERIAL PRIMARY KEY,
		recorded_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		parser             VARCHAR(50) NOT NULL,
		strategy           VARCHAR(50) NOT NULL,
		input_type         VARCHAR(20) NOT NULL,
		input_size         INT NOT NULL DEFAULT 0,
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		success            BOOLEAN NOT NULL,
		questions_count    INT NOT NULL DEFAULT 0,
		confidence         DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_cents         INT NOT NULL DEFAULT 0,
		errors             JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_strategy ON parse_metrics(strategy, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_metrics_time ON parse_metrics(recorded_at DESC);

	CREATE TABLE IF NOT EXISTS budget_usage (
		period_kind VARCHAR(10) NOT NULL,
		period_key  VARCHAR(10) NOT NULL,
		cents       INT NOT NULL DEFAULT 0,
		updated_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY(period_kind, period_key)
	);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
