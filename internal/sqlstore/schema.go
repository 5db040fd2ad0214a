package sqlstore

// SQLite DDL. Timestamps are fixed-width UTC text (timeLayout).
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS boards (
    board_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS lists (
    list_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    position INTEGER NOT NULL,
    board_id TEXT NOT NULL REFERENCES boards(board_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS cards (
    card_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    position INTEGER NOT NULL,
    due_date TEXT,
    list_id TEXT NOT NULL REFERENCES lists(list_id) ON DELETE CASCADE,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_boards_user ON boards(user_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_lists_board ON lists(board_id, position);`,
	`CREATE INDEX IF NOT EXISTS idx_cards_list ON cards(list_id, position);`,
}

// Postgres DDL.
var postgresSchema = []string{
	`create table if not exists users(
    user_id text primary key,
    email text unique not null,
    password_hash text not null,
    created_at timestamptz not null default now()
);`,
	`create table if not exists sessions(
    session_id text primary key,
    user_id text not null references users(user_id) on delete cascade,
    created_at timestamptz not null default now(),
    expires_at timestamptz not null
);`,
	`create table if not exists boards(
    board_id text primary key,
    title text not null check (length(title) > 0),
    description text,
    user_id text not null references users(user_id) on delete cascade,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`create table if not exists lists(
    list_id text primary key,
    title text not null check (length(title) > 0),
    position integer not null check (position >= 0),
    board_id text not null references boards(board_id) on delete cascade,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`create table if not exists cards(
    card_id text primary key,
    title text not null check (length(title) > 0),
    description text,
    position integer not null check (position >= 0),
    due_date timestamptz,
    list_id text not null references lists(list_id) on delete cascade,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`create index if not exists sessions_user_idx on sessions(user_id);`,
	`create index if not exists boards_user_idx on boards(user_id, created_at);`,
	`create index if not exists lists_board_idx on lists(board_id, position);`,
	`create index if not exists cards_list_idx on cards(list_id, position);`,
}
