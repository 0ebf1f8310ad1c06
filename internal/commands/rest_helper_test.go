package commands_test

import (
	"testing"

	"todoctl/internal/backend/rest"
	"todoctl/internal/config"
	"todoctl/internal/service"
)

func restClient(t *testing.T, cfg *config.Config) service.Service {
	t.Helper()
	c, err := rest.New(cfg)
	if err != nil {
		t.Fatalf("rest client: %v", err)
	}
	return c
}
