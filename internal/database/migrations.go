package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the ordered migration list for the given dialect.
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return postgresMigrations()
	}
	return sqliteMigrations()
}

func postgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password VARCHAR(255) NOT NULL,
				role VARCHAR(20) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				grade VARCHAR(50),
				parent_id UUID REFERENCES users(id) ON DELETE SET NULL,
				photo_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create subscriptions table",
			SQL: `CREATE TABLE IF NOT EXISTS subscriptions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				plan VARCHAR(20) NOT NULL,
				status VARCHAR(20) NOT NULL,
				start_date TIMESTAMP WITH TIME ZONE NOT NULL,
				end_date TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create courses table",
			SQL: `CREATE TABLE IF NOT EXISTS courses (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				level VARCHAR(20) NOT NULL,
				subject VARCHAR(100) NOT NULL,
				description TEXT,
				teacher_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				video_url TEXT,
				pdf_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create quizzes table",
			SQL: `CREATE TABLE IF NOT EXISTS quizzes (
				id UUID PRIMARY KEY,
				course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				questions JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create progress ledger",
			SQL: `CREATE TABLE IF NOT EXISTS progress (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				quiz_id UUID REFERENCES quizzes(id) ON DELETE SET NULL,
				score INTEGER,
				completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create live_sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS live_sessions (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				course_id UUID REFERENCES courses(id) ON DELETE CASCADE,
				room_name VARCHAR(255) UNIQUE NOT NULL,
				scheduled_at TIMESTAMP WITH TIME ZONE,
				created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				status VARCHAR(20) NOT NULL DEFAULT 'active',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     7,
			Description: "Create kv_entries table",
			SQL: `CREATE TABLE IF NOT EXISTS kv_entries (
				key VARCHAR(255) PRIMARY KEY,
				value TEXT NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`,
		},
		{
			Version:     8,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_parent_id ON users(parent_id);
				CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX IF NOT EXISTS idx_courses_teacher_id ON courses(teacher_id);
				CREATE INDEX IF NOT EXISTS idx_courses_level ON courses(level);
				CREATE INDEX IF NOT EXISTS idx_quizzes_course_id ON quizzes(course_id);
				CREATE INDEX IF NOT EXISTS idx_progress_user_id ON progress(user_id);
				CREATE INDEX IF NOT EXISTS idx_progress_course_id ON progress(course_id);
				CREATE INDEX IF NOT EXISTS idx_live_sessions_course_id ON live_sessions(course_id);
				CREATE INDEX IF NOT EXISTS idx_kv_entries_expires_at ON kv_entries(expires_at);`,
		},
	}
}

func sqliteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password TEXT NOT NULL,
				role TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				grade TEXT,
				parent_id TEXT REFERENCES users(id) ON DELETE SET NULL,
				photo_url TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create subscriptions table",
			SQL: `CREATE TABLE IF NOT EXISTS subscriptions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				plan TEXT NOT NULL,
				status TEXT NOT NULL,
				start_date DATETIME NOT NULL,
				end_date DATETIME,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     3,
			Description: "Create courses table",
			SQL: `CREATE TABLE IF NOT EXISTS courses (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				level TEXT NOT NULL,
				subject TEXT NOT NULL,
				description TEXT,
				teacher_id TEXT NOT NULL,
				video_url TEXT,
				pdf_url TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (teacher_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     4,
			Description: "Create quizzes table",
			SQL: `CREATE TABLE IF NOT EXISTS quizzes (
				id TEXT PRIMARY KEY,
				course_id TEXT NOT NULL,
				title TEXT NOT NULL,
				questions TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     5,
			Description: "Create progress ledger",
			SQL: `CREATE TABLE IF NOT EXISTS progress (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				course_id TEXT NOT NULL,
				quiz_id TEXT,
				score INTEGER,
				completed_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     6,
			Description: "Create live_sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS live_sessions (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT,
				course_id TEXT,
				room_name TEXT UNIQUE NOT NULL,
				scheduled_at DATETIME,
				created_by TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE,
				FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     7,
			Description: "Create kv_entries table",
			SQL: `CREATE TABLE IF NOT EXISTS kv_entries (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				expires_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     8,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_parent_id ON users(parent_id);
				CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX IF NOT EXISTS idx_courses_teacher_id ON courses(teacher_id);
				CREATE INDEX IF NOT EXISTS idx_courses_level ON courses(level);
				CREATE INDEX IF NOT EXISTS idx_quizzes_course_id ON quizzes(course_id);
				CREATE INDEX IF NOT EXISTS idx_progress_user_id ON progress(user_id);
				CREATE INDEX IF NOT EXISTS idx_progress_course_id ON progress(course_id);
				CREATE INDEX IF NOT EXISTS idx_live_sessions_course_id ON live_sessions(course_id);
				CREATE INDEX IF NOT EXISTS idx_kv_entries_expires_at ON kv_entries(expires_at);`,
		},
	}
}

func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func recordMigration(db *sql.DB, dbType string, version int) error {
	_, err := db.Exec(Bind(dbType, "INSERT INTO schema_migrations (version) VALUES (?)"), version)
	return err
}

// RunMigrations applies all pending migrations in version order.
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		// Statements are separated by semicolons; run them one at a time.
		for _, stmt := range strings.Split(migration.SQL, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Description, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
