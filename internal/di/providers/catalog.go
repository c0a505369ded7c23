package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmarkapp/shelfmark-server/internal/catalog"
	"github.com/shelfmarkapp/shelfmark-server/internal/config"
	"github.com/shelfmarkapp/shelfmark-server/internal/logger"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// CatalogClientHandle wraps the catalog client with shutdown capability.
type CatalogClientHandle struct {
	*catalog.Client
}

// Shutdown implements do.Shutdownable.
func (h *CatalogClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCatalogClient provides the Google Books catalog client.
func ProvideCatalogClient(i do.Injector) (*CatalogClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, log.Logger)

	log.Info("Catalog client initialized",
		"base_url", cfg.Catalog.BaseURL,
		"has_api_key", cfg.Catalog.APIKey != "",
	)

	return &CatalogClientHandle{Client: client}, nil
}

// ProvideCatalogService provides the catalog search service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	clientHandle := do.MustInvoke[*CatalogClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(clientHandle.Client, log.Logger), nil
}
