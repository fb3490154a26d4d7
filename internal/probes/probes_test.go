package probes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnsight/vulnsight/api/schemas"
)

const testTimeout = 2 * time.Second

func TestNormalizeTarget(t *testing.T) {
	assert.Equal(t, "http://example.com", normalizeTarget("example.com"))
	assert.Equal(t, "https://example.com", normalizeTarget("https://example.com"))
	assert.Equal(t, "", normalizeTarget(""))
}

func TestTextual(t *testing.T) {
	assert.True(t, textual("text/html; charset=utf-8"))
	assert.True(t, textual("application/json"))
	assert.False(t, textual("application/octet-stream"))
	assert.False(t, textual("image/png"))
}

func TestCheckHeaders(t *testing.T) {
	t.Run("bare server gets worst grade", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>hello</html>")
		}))
		defer srv.Close()

		res := CheckHeaders(srv.URL)
		require.NotContains(t, res, "error")
		assert.Equal(t, "HIGH", res["severity"])
		assert.Equal(t, "F", res["grade"])
		assert.Equal(t, 200, res["status_code"])
		assert.Contains(t, res, "_meta")
	})

	t.Run("fully hardened server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", "default-src 'self'")
			h.Set("Strict-Transport-Security", "max-age=63072000")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Permissions-Policy", "camera=()")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-XSS-Protection", "0")
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		res := CheckHeaders(srv.URL)
		assert.Equal(t, "LOW", res["severity"])
		assert.Equal(t, "A", res["grade"])
		assert.Empty(t, res["evidence"])
	})

	t.Run("unreachable target returns failure", func(t *testing.T) {
		res := CheckHeaders("http://127.0.0.1:1")
		assert.Equal(t, "Request failed", res["error"])
	})
}

func TestCheckClickjacking(t *testing.T) {
	t.Run("no framing controls", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		res := CheckClickjacking(srv.URL)
		assert.Equal(t, "HIGH", res["severity"])
		evidence := res["evidence"].(map[string]string)
		assert.Equal(t, "MISSING", evidence["x_frame_options"])
		assert.Equal(t, "MISSING", evidence["csp_frame_ancestors"])
	})

	t.Run("both controls present", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'; default-src 'self'")
		}))
		defer srv.Close()

		res := CheckClickjacking(srv.URL)
		assert.Equal(t, "LOW", res["severity"])
	})

	t.Run("permissive frame-ancestors counts as one missing control", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Content-Security-Policy", "frame-ancestors *")
		}))
		defer srv.Close()

		res := CheckClickjacking(srv.URL)
		assert.Equal(t, "MEDIUM", res["severity"])
		evidence := res["evidence"].(map[string]string)
		assert.Equal(t, "PERMISSIVE (*)", evidence["csp_frame_ancestors"])
	})
}

func TestCheckCookies(t *testing.T) {
	t.Run("insecure session cookie flagged", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "session=abc123; Path=/")
		}))
		defer srv.Close()

		res := CheckCookies(srv.URL, testTimeout)
		assert.Equal(t, "HIGH", res["severity"])
		assert.Equal(t, "Cookies missing secure attributes: 1 items.", res["description"])
	})

	t.Run("hardened cookie passes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "session=abc123; Secure; HttpOnly; SameSite=Strict")
		}))
		defer srv.Close()

		res := CheckCookies(srv.URL, testTimeout)
		assert.Equal(t, "LOW", res["severity"])
	})

	t.Run("SameSite=None is flagged even with other attributes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "session=abc123; Secure; HttpOnly; SameSite=None")
		}))
		defer srv.Close()

		res := CheckCookies(srv.URL, testTimeout)
		assert.Equal(t, "HIGH", res["severity"])
	})
}

func TestCheckCORS(t *testing.T) {
	t.Run("reflected origin with credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}))
		defer srv.Close()

		res := CheckCORS(srv.URL, testTimeout)
		assert.Equal(t, "HIGH", res["severity"])
	})

	t.Run("wildcard without credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}))
		defer srv.Close()

		res := CheckCORS(srv.URL, testTimeout)
		assert.Equal(t, "MEDIUM", res["severity"])
	})

	t.Run("no CORS headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		res := CheckCORS(srv.URL, testTimeout)
		assert.Equal(t, "LOW", res["severity"])
	})
}

func TestCheckOpenRedirect(t *testing.T) {
	t.Run("external redirect on common parameter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("next") != "" {
				// Redirects anywhere the parameter points, ignoring its value.
				http.Redirect(w, r, "https://evil.example.org/", http.StatusFound)
				return
			}
			fmt.Fprint(w, "ok")
		}))
		defer srv.Close()

		res := CheckOpenRedirect(schemas.ProbeOptions{Target: srv.URL, Timeout: testTimeout})
		assert.Equal(t, "MEDIUM", res["severity"])
		findings := res["evidence"].([]map[string]string)
		require.Len(t, findings, 1)
		assert.Equal(t, "next", findings[0]["param"])
	})

	t.Run("same-host redirect is not a finding", func(t *testing.T) {
		var host string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("next") != "" {
				http.Redirect(w, r, "http://"+host+"/home", http.StatusFound)
				return
			}
		}))
		defer srv.Close()
		parsed, err := url.Parse(srv.URL)
		require.NoError(t, err)
		host = parsed.Host

		res := CheckOpenRedirect(schemas.ProbeOptions{Target: srv.URL, Timeout: testTimeout})
		assert.Equal(t, "LOW", res["severity"])
	})
}

func TestCheckDirListing(t *testing.T) {
	t.Run("apache style index page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/uploads/" {
				fmt.Fprint(w, `<html><head><title>Index of /uploads</title></head>
<body><h1>Index of /uploads</h1><a href="secret.txt">secret.txt</a><a href="backup.zip">backup.zip</a></body></html>`)
				return
			}
			fmt.Fprint(w, "<html>welcome</html>")
		}))
		defer srv.Close()

		res := CheckDirListing(srv.URL, testTimeout)
		assert.Equal(t, "HIGH", res["severity"])
		assert.Equal(t, 200, res["status_code"])
		findings := res["evidence"].([]map[string]any)
		require.NotEmpty(t, findings)
		assert.Contains(t, findings[0]["entries"], "secret.txt")
	})

	t.Run("no listings anywhere", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>app</html>")
		}))
		defer srv.Close()

		res := CheckDirListing(srv.URL, testTimeout)
		assert.Equal(t, "LOW", res["severity"])
		assert.Nil(t, res["status_code"])
	})
}

func TestLooksLikeListing(t *testing.T) {
	assert.True(t, looksLikeListing("<title>Index of /files</title>"))
	assert.True(t, looksLikeListing("plain body with Index of / marker"))
	assert.False(t, looksLikeListing("<title>Welcome</title> regular page"))
}

func TestCheckXSSReflection(t *testing.T) {
	t.Run("reflected token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, "<html>you searched for %s</html>", r.URL.Query().Get("vuln"))
		}))
		defer srv.Close()

		res := CheckXSSReflection(srv.URL, testTimeout)
		assert.Equal(t, "HIGH", res["severity"])
		assert.NotEmpty(t, res["evidence"])
	})

	t.Run("no reflection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>static page</html>")
		}))
		defer srv.Close()

		res := CheckXSSReflection(srv.URL, testTimeout)
		assert.Equal(t, "LOW", res["severity"])
	})

	t.Run("binary content type is ignored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			fmt.Fprint(w, r.URL.Query().Get("vuln"))
		}))
		defer srv.Close()

		res := CheckXSSReflection(srv.URL, testTimeout)
		assert.Equal(t, "LOW", res["severity"])
	})
}

func TestCheckTLS(t *testing.T) {
	t.Run("handshake against a modern test server", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		res := CheckTLS(schemas.ProbeOptions{Target: srv.URL, Timeout: testTimeout})
		require.NotContains(t, res, "error")
		evidence := res["evidence"].(map[string]any)
		assert.NotEmpty(t, evidence["negotiated_version"])
		assert.NotEmpty(t, evidence["cipher_suite"])
	})

	t.Run("closed port returns failure", func(t *testing.T) {
		res := CheckTLS(schemas.ProbeOptions{Target: "https://127.0.0.1:1", Timeout: testTimeout})
		assert.Equal(t, "Request failed", res["error"])
	})
}
