package commands

import (
	"testing"

	"inkpress/internal/config"
	"inkpress/internal/mail"
	"inkpress/internal/storage"
)

func TestNewSender(t *testing.T) {
	if _, ok := newSender(&config.Config{Env: "development"}).(mail.LogSender); !ok {
		t.Error("development should log mail")
	}
	if _, ok := newSender(&config.Config{Env: "production"}).(*mail.SMTPSender); !ok {
		t.Error("production should relay over SMTP")
	}
}

func TestOpenMediaFallsBackToDisk(t *testing.T) {
	cfg := &config.Config{MediaRoot: t.TempDir(), MediaURL: "/media/"}
	store, handler, err := openMedia(cfg)
	if err != nil {
		t.Fatalf("openMedia: %v", err)
	}
	if _, ok := store.(*storage.Disk); !ok {
		t.Errorf("store: got %T, want *storage.Disk", store)
	}
	if handler == nil {
		t.Error("disk storage needs a media handler")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "worker": false, "migrate": false, "seed": false, "createsuperuser": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
