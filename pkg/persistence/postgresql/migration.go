package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create users table
			CREATE TABLE users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'member')),
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'disabled')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_users_email ON users(email);
			CREATE INDEX idx_users_status ON users(status);

			-- Create sessions table
			CREATE TABLE sessions (
				token VARCHAR(255) PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				remembered BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX idx_sessions_expires_at ON sessions(expires_at);
		`,
		2: `
			-- Migration 2: campaign run tracking
			CREATE TABLE campaign_runs (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed')),
				campaign JSONB NOT NULL,
				leads_found INT NOT NULL DEFAULT 0,
				evaluation_score DOUBLE PRECISION,
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_campaign_runs_user_id ON campaign_runs(user_id);
			CREATE INDEX idx_campaign_runs_status ON campaign_runs(status);
			CREATE INDEX idx_campaign_runs_started_at ON campaign_runs(started_at);
		`,
	}
}
