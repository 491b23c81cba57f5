package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when REDIS_ADDR is empty")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, true); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()
	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestBuildRedisClientUnreachableReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), false); client == nil {
		t.Fatalf("expected unverified client to be returned")
	}
}

func TestConnectPostgresEmptyURL(t *testing.T) {
	pg, err := ConnectPostgres(context.Background(), "  ", logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pg != nil {
		t.Fatalf("expected nil handles without DATABASE_URL")
	}
	// Close tolerates nil.
	pg.Close()
}

func TestConnectPostgresInvalidURL(t *testing.T) {
	if _, err := ConnectPostgres(context.Background(), "postgres://%zz", logging.New("error")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC default, got %v %v", loc, err)
	}
	loc, err = LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/Chicago" {
		t.Fatalf("unexpected location %s", loc)
	}
	if _, err := LoadLocation("Mars/Olympus"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestBuildEmailSenderSelection(t *testing.T) {
	tests := []struct {
		name string
		cfg  *appconfig.Config
		want string
	}{
		{"nil config", nil, "stub"},
		{"default", &appconfig.Config{}, "stub"},
		{"explicit stub", &appconfig.Config{EmailProvider: "stub"}, "stub"},
		{"sendgrid without key", &appconfig.Config{EmailProvider: "sendgrid"}, "stub"},
		{"sendgrid", &appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "key", SendGridFromEmail: "clinic@example.com"}, "sendgrid"},
		{"ses", &appconfig.Config{EmailProvider: "ses", AWSRegion: "us-east-1", AWSAccessKeyID: "id", AWSSecretAccessKey: "secret"}, "ses"},
		{"unknown", &appconfig.Config{EmailProvider: "pigeon"}, "stub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := BuildEmailSender(context.Background(), tt.cfg, logging.New("error"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got string
			switch sender.(type) {
			case *notify.StubEmailSender:
				got = "stub"
			case *notify.SendGridSender:
				got = "sendgrid"
			case *notify.SESSender:
				got = "ses"
			}
			if got != tt.want {
				t.Fatalf("provider = %q, want %q", got, tt.want)
			}
		})
	}
}
