package app

import (
	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/http/providers"
	"github.com/dropDatabas3/federation/internal/http/providers/facebook"
	"github.com/dropDatabas3/federation/internal/http/providers/github"
	"github.com/dropDatabas3/federation/internal/http/providers/google"
	"github.com/dropDatabas3/federation/internal/http/providers/microsoft"
	"github.com/dropDatabas3/federation/internal/http/providers/oauth1"
)

// NewRegistry registra todas las factories de proveedores conocidas.
func NewRegistry(fed config.Federation) *providers.Registry {
	reg := providers.NewRegistry()
	reg.RegisterFactory(google.ProviderName, google.Factory)
	reg.RegisterFactory("github", github.Factory)
	reg.RegisterFactory("facebook", facebook.Factory)
	reg.RegisterFactory(microsoft.ProviderName, microsoft.Factory)
	reg.RegisterFactory(microsoft.ProviderAzureAD, microsoft.Factory)
	reg.RegisterFactory("twitter", oauth1.TwitterFactory)
	reg.RegisterFactory("bitbucket", oauth1.BitbucketFactory)

	reg.Endpoints = fed.Endpoints
	reg.HTTPClient = providers.NewHTTPClient(config.Dur(fed.HTTPTimeout, providers.DefaultHTTPTimeout))
	return reg
}
