package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables the service needs. Safe to call on every
// startup, the statements use IF NOT EXISTS.
func CreateSchema(database *sql.DB) error {
	if _, err := database.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    username TEXT UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    subtitle TEXT NOT NULL DEFAULT '',
    avatar TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    website TEXT NOT NULL DEFAULT '',
    linkedin TEXT NOT NULL DEFAULT '',
    instagram TEXT NOT NULL DEFAULT '',
    twitter TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    upi TEXT NOT NULL DEFAULT '',
    owner_device_id TEXT NOT NULL DEFAULT '',
    google_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (owner_device_id = '' OR google_id = '')
);

CREATE INDEX IF NOT EXISTS idx_profiles_owner_device_id ON profiles(owner_device_id) WHERE owner_device_id <> '';
CREATE INDEX IF NOT EXISTS idx_profiles_google_id ON profiles(google_id) WHERE google_id <> '';

CREATE TABLE IF NOT EXISTS nfc_links (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE CHECK (char_length(slug) = 16),
    profile_id TEXT REFERENCES profiles(id),
    created_by TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_assigned BOOLEAN NOT NULL DEFAULT FALSE,
    assigned_to TEXT,
    assigned_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS appointments (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    date DATE NOT NULL,
    time TEXT NOT NULL,
    profile_name TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'declined')),
    owner_response TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_appointments_username ON appointments(username);

CREATE TABLE IF NOT EXISTS dashboards (
    id TEXT PRIMARY KEY,
    google_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    theme TEXT NOT NULL DEFAULT 'default' CHECK (theme IN ('default', 'dark', 'light', 'custom')),
    is_public BOOLEAN NOT NULL DEFAULT TRUE,
    layout JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dashboards_google_id ON dashboards(google_id);
`
