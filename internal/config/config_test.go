package config

import (
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBPartsURLEscapesCredentials(t *testing.T) {
	p := dbParts{
		Host:     "db.internal",
		Port:     "5433",
		User:     "app@corp",
		Password: "p@ss:w/rd?#%",
		Name:     "fellowship",
		SSLMode:  "require",
	}

	raw := p.url()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", u.Hostname())
	assert.Equal(t, "5433", u.Port())
	assert.Equal(t, "/fellowship", u.Path)
	assert.Equal(t, "app@corp", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd?#%", pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	// the driver reads the same credentials back
	pc, err := pgxpool.ParseConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "app@corp", pc.ConnConfig.User)
	assert.Equal(t, "p@ss:w/rd?#%", pc.ConnConfig.Password)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
}

func TestDBPartsURLBracketsIPv6Host(t *testing.T) {
	p := dbParts{Host: "::1", Port: "5432", User: "u", Password: "p", Name: "db", SSLMode: "disable"}

	u, err := url.Parse(p.url())
	require.NoError(t, err)
	assert.Equal(t, "[::1]:5432", u.Host)
}

func TestLoadBuildsDBURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "svc user")
	t.Setenv("DB_PASSWORD", "a/b@c")

	cfg, err := Load()
	require.NoError(t, err)

	u, err := url.Parse(cfg.DBURL)
	require.NoError(t, err)
	assert.Equal(t, "svc user", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "a/b@c", pw)
	assert.Equal(t, cfg.DBURL, cfg.ServiceDBURL)
}

func TestLoadRejectsRefreshThresholdNotBelowAccessTTL(t *testing.T) {
	cases := []struct {
		name      string
		threshold string
		accessTTL string
		wantErr   bool
	}{
		{"below", "5m", "1h", false},
		{"equal", "1h", "1h", true},
		{"above", "2h", "1h", true},
		{"short ttl", "5m", "2m", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SESSION_REFRESH_THRESHOLD", tc.threshold)
			t.Setenv("JWT_ACCESS_TTL", tc.accessTTL)

			cfg, err := Load()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SESSION_REFRESH_THRESHOLD")
				return
			}
			require.NoError(t, err)
			assert.Less(t, cfg.RefreshThreshold, cfg.JWTAccessTTL)
		})
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies, "no proxy is trusted unless configured")

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.5")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.TrustedProxies)
}
