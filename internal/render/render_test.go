package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	got, err := Server(ServerData{URL: "https://rolleilookup.com", BootstrapScript: "../scripts/sync-serial-numbers"})
	require.NoError(t, err)

	want := `module.exports = ({ env }) => ({
  host: env('HOST', '0.0.0.0'),
  port: env.int('PORT', 1337),
  url: env('URL', 'https://rolleilookup.com'),
  admin: {
    url: env('ADMIN_URL', '/admin'),
  },
  app: {
    keys: env.array('APP_KEYS'),
  },
  proxy: true, // Trust proxy headers from Nginx
  async bootstrap({ strapi }) {
    const sync = require('../scripts/sync-serial-numbers');
    await sync({ strapi });
  },
});
`
	assert.Equal(t, want, string(got))
}

func TestServerWithoutBootstrap(t *testing.T) {
	got, err := Server(ServerData{URL: "http://localhost:1337"})
	require.NoError(t, err)
	assert.NotContains(t, string(got), "bootstrap")
	assert.Contains(t, string(got), "proxy: true, // Trust proxy headers from Nginx\n});\n")
}

func TestServerRequiresURL(t *testing.T) {
	_, err := Server(ServerData{})
	require.Error(t, err)
}

func TestServerIsDeterministic(t *testing.T) {
	a, err := Server(ServerData{URL: "http://localhost:1337"})
	require.NoError(t, err)
	b, err := Server(ServerData{URL: "http://localhost:1337"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMiddlewaresFull(t *testing.T) {
	got, err := Middlewares(MiddlewareData{
		CORSOrigins:  []string{"https://rolleilookup.com", "https://rolleilookup.com/admin"},
		Directives:   DefaultDirectives([]string{"https://*.digitaloceanspaces.com"}, []string{"https://*.digitaloceanspaces.com"}, []string{"https://rolleilookup.com"}),
		ErrorHandler: "global::error-handler",
	})
	require.NoError(t, err)

	want := `module.exports = [
  'strapi::errors',
  {
    name: 'strapi::cors',
    config: {
      origin: ['https://rolleilookup.com', 'https://rolleilookup.com/admin'],
      headers: ['Content-Type', 'Authorization', 'X-Frame-Options', 'Origin', 'Accept'],
      methods: ['GET', 'POST', 'PUT', 'DELETE', 'OPTIONS'],
    },
  },
  {
    name: 'strapi::security',
    config: {
      contentSecurityPolicy: {
        useDefaults: true,
        directives: {
          'connect-src': ["'self'", 'https:', 'http:'],
          'img-src': ["'self'", 'data:', 'blob:', 'https://*.digitaloceanspaces.com'],
          'media-src': ["'self'", 'data:', 'blob:', 'https://*.digitaloceanspaces.com'],
          'script-src': ["'self'", "'unsafe-inline'", 'https://rolleilookup.com'],
          'style-src': ["'self'", "'unsafe-inline'"],
          upgradeInsecureRequests: null,
        },
      },
    },
  },
  'strapi::poweredBy',
  'strapi::logger',
  'strapi::query',
  'strapi::body',
  'strapi::session',
  'strapi::favicon',
  'strapi::public',
  'global::error-handler',
];
`
	assert.Equal(t, want, string(got))
}

func TestMiddlewaresPlain(t *testing.T) {
	got, err := Middlewares(MiddlewareData{CORSOrigins: []string{"http://localhost:1337", "http://127.0.0.1:1337"}})
	require.NoError(t, err)

	s := string(got)
	assert.Contains(t, s, "origin: ['http://localhost:1337', 'http://127.0.0.1:1337'],")
	assert.Contains(t, s, "  'strapi::security',\n")
	assert.NotContains(t, s, "contentSecurityPolicy")
	assert.NotContains(t, s, "global::error-handler")
}

func TestMiddlewaresRequiresOrigin(t *testing.T) {
	_, err := Middlewares(MiddlewareData{})
	require.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'http:'", quote("http:"))
	assert.Equal(t, `"'self'"`, quote("'self'"))
	assert.Equal(t, `'it\'s "x"'`, quote(`it's "x"`))
}

func TestSubstituteServerURL(t *testing.T) {
	in := []byte("module.exports = ({ env }) => ({\n  url: env('URL', 'http://rolleilookup.com'),\n  port: 1,\n});\n")

	got, err := SubstituteServerURL(in, "http://localhost:1337")
	require.NoError(t, err)
	assert.Equal(t, "module.exports = ({ env }) => ({\n  url: env('URL', 'http://localhost:1337'),\n  port: 1,\n});\n", string(got))

	again, err := SubstituteServerURL(got, "http://localhost:1337")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = SubstituteServerURL([]byte("module.exports = {}"), "x")
	require.Error(t, err)
}
